package httpclient

import "net/http"

// AuthConfig sets credentials on outgoing requests.
type AuthConfig struct {
	// Token is sent as "Authorization: Bearer <token>".
	Token string
	// Header, when set, carries Token verbatim instead.
	Header string
}

// BearerAuth authenticates with a bearer token.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Token: token}
}

// HeaderAuth sends token in a custom header, e.g. X-API-Key.
func HeaderAuth(header, token string) *AuthConfig {
	return &AuthConfig{Token: token, Header: header}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil || a.Token == "" {
		return
	}
	if a.Header != "" {
		req.Header.Set(a.Header, a.Token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}
