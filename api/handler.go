package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarizer/diarization"
	"github.com/kbukum/diarizer/errors"
	"github.com/kbukum/diarizer/logger"
	"github.com/kbukum/diarizer/resilience"
	"github.com/kbukum/diarizer/server"
	"github.com/kbukum/diarizer/server/endpoint"
	"github.com/kbukum/diarizer/validation"
)

// Form fields of POST /diarize.
const (
	FieldAudio       = "audio"
	FieldSegments    = "segments"
	FieldNumSpeakers = "num_speakers"
	FieldMinSpeakers = "min_speakers"
	FieldMaxSpeakers = "max_speakers"
)

// TestMessage is the body of GET /test.
const TestMessage = "Diarization API is running"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string            `json:"status"`
	PipelineLoaded bool              `json:"pipeline_loaded"`
	PipelineState  string            `json:"pipeline_state"`
	Components     []ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth is one registry component in GET /health.
type ComponentHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ResetResponse is the body of a successful pipeline reset.
type ResetResponse struct {
	Status        string `json:"status"`
	PipelineState string `json:"pipeline_state"`
}

// PipelineStatus is the body of GET /admin/pipeline.
type PipelineStatus struct {
	diarization.Snapshot
	Breaker *resilience.BreakerStats `json:"breaker,omitempty"`
}

// Handler serves the diarization routes.
type Handler struct {
	service *diarization.Service
	health  endpoint.HealthChecker
	log     *logger.Logger
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(service *diarization.Service, health endpoint.HealthChecker, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{service: service, health: health, log: log.WithComponent("api")}
}

// Register mounts the routes. guards run before /diarize and /admin.
func (h *Handler) Register(r gin.IRouter, guards ...gin.HandlerFunc) {
	r.GET("/health", h.Health)
	r.GET("/test", h.Test)

	r.POST("/diarize", append(slices.Clone(guards), h.Diarize)...)

	admin := r.Group("/admin", guards...)
	admin.GET("/pipeline", h.Pipeline)
	admin.POST("/pipeline/reset", h.ResetPipeline)
}

// Diarize handles POST /diarize.
func (h *Handler) Diarize(c *gin.Context) {
	audio, err := readAudio(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	v := validation.New()
	hints := diarization.SpeakerHints{
		NumSpeakers: v.OptionalInt(FieldNumSpeakers, c.PostForm(FieldNumSpeakers)),
		MinSpeakers: v.OptionalInt(FieldMinSpeakers, c.PostForm(FieldMinSpeakers)),
		MaxSpeakers: v.OptionalInt(FieldMaxSpeakers, c.PostForm(FieldMaxSpeakers)),
	}
	if appErr := v.Validate(); appErr != nil {
		server.RespondWithError(c, appErr)
		return
	}

	// Older clients send segments as a query parameter.
	segments, ok := c.GetPostForm(FieldSegments)
	if !ok {
		segments = c.Query(FieldSegments)
	}

	resp, err := h.service.Diarize(c.Request.Context(), diarization.Input{
		Audio:    audio,
		Segments: segments,
		Hints:    hints,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, resp)
}

// readAudio reads the uploaded file. A missing field is a 400 and an
// oversized body a 413.
func readAudio(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile(FieldAudio)
	if err != nil {
		return nil, uploadError(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.ProcessingFailed("failed to open uploaded audio", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, uploadError(err)
	}
	return data, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
			http.StatusRequestEntityTooLarge).WithCause(err)
	case stderrors.Is(err, http.ErrMissingFile):
		return errors.MissingField(FieldAudio)
	default:
		return errors.InvalidFormat("body", "multipart/form-data with an audio file").WithCause(err)
	}
}

// Health handles GET /health. It always answers 200; pipeline_loaded
// tells whether /diarize can serve.
func (h *Handler) Health(c *gin.Context) {
	snap := h.service.Manager().Snapshot()
	resp := HealthResponse{
		Status:         errors.StatusOK,
		PipelineLoaded: snap.State == diarization.StateReady,
		PipelineState:  snap.State.String(),
	}
	if h.health != nil {
		for _, ch := range h.health(c.Request.Context()) {
			resp.Components = append(resp.Components, ComponentHealth{
				Name: ch.Name, Status: string(ch.Status), Message: ch.Message,
			})
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Test handles GET /test.
func (h *Handler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": TestMessage})
}

// Pipeline handles GET /admin/pipeline.
func (h *Handler) Pipeline(c *gin.Context) {
	c.JSON(http.StatusOK, PipelineStatus{
		Snapshot: h.service.Manager().Snapshot(),
		Breaker:  h.service.BreakerStats(),
	})
}

// ResetPipeline handles POST /admin/pipeline/reset. Only a failed load can
// be reset; anything else is a 409.
func (h *Handler) ResetPipeline(c *gin.Context) {
	manager := h.service.Manager()
	if err := manager.Reset(); err != nil {
		if stderrors.Is(err, diarization.ErrNotResettable) {
			server.RespondWithError(c, errors.Conflict(err.Error()).WithCause(err))
			return
		}
		server.RespondWithError(c, err)
		return
	}
	h.log.WithContext(c.Request.Context()).Info("Pipeline reset requested", logger.Fields(
		"client", c.ClientIP(),
	))
	c.JSON(http.StatusOK, ResetResponse{
		Status:        errors.StatusOK,
		PipelineState: manager.Snapshot().State.String(),
	})
}
