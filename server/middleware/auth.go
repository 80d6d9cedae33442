package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/diarizer/errors"
)

// ContextKeySubject holds the token subject on the Gin context.
const ContextKeySubject = "auth_subject"

// AuthConfig configures bearer-token authentication. Tokens are HS256
// JWTs signed with Secret. An empty Secret disables authentication.
type AuthConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	// SkipPaths are exact paths served without a token.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// Enabled reports whether a secret is configured.
func (c AuthConfig) Enabled() bool { return c.Secret != "" }

// Auth requires a valid bearer token outside SkipPaths and CORS preflight.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	opts := []gojwt.ParserOption{gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	parser := gojwt.NewParser(opts...)

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abort(c, apperrors.Unauthorized("Missing bearer token."))
			return
		}

		claims := &gojwt.RegisteredClaims{}
		_, err := parser.ParseWithClaims(token, claims, func(*gojwt.Token) (interface{}, error) {
			return []byte(cfg.Secret), nil
		})
		switch {
		case errors.Is(err, gojwt.ErrTokenExpired):
			abort(c, apperrors.TokenExpired())
			return
		case err != nil:
			abort(c, apperrors.InvalidToken().WithCause(err))
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

// IssueToken signs an HS256 token for subject. A zero ttl never expires.
func IssueToken(cfg AuthConfig, subject string, ttl time.Duration) (string, error) {
	if !cfg.Enabled() {
		return "", errors.New("auth secret is not configured")
	}
	now := time.Now()
	claims := gojwt.RegisteredClaims{
		Subject:  subject,
		Issuer:   cfg.Issuer,
		IssuedAt: gojwt.NewNumericDate(now),
	}
	if ttl != 0 {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
