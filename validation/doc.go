// Package validation checks request input before it reaches the pipeline.
//
// Struct tags cover decoded JSON such as transcript segments:
//
//	type TranscriptSegment struct {
//	    Start *float64 `json:"start" validate:"omitempty,gte=0"`
//	}
//	err := validation.Validate(seg)
//
// The collecting Validator covers values parsed by hand, such as multipart
// form fields:
//
//	v := validation.New()
//	v.Min("num_speakers", n, 1)
//	err := v.Validate()
package validation
