// Package httpclient is the outbound HTTP client used to talk to the model
// host and to the diarization service itself. It encodes JSON and
// multipart bodies, classifies failures by status and optionally retries
// them.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:8388",
//	    Auth:    httpclient.BearerAuth(token),
//	})
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/pipeline",
//	    Body:   map[string]string{"model": model},
//	})
package httpclient
