package httpclient

import "encoding/json"

// Request describes an outbound request.
type Request struct {
	Method string
	// Path is joined to BaseURL unless it is an absolute URL.
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body accepts io.Reader, []byte, string, *MultipartBody or any value
	// to be JSON encoded.
	Body any
	// Auth overrides the client's auth.
	Auth *AuthConfig
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into out.
func (r *Response) JSON(out any) error {
	return json.Unmarshal(r.Body, out)
}
