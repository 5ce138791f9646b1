// Package netx holds small HTTP helpers shared by the command-line tools.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// BasicAuth is a username/password pair for HTTP basic authentication.
type BasicAuth struct {
	User     string
	Password string
}

// UploadError reports a non-2xx response to an upload.
type UploadError struct {
	Status     string
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

// Put streams body to url with a PUT request. size may be -1 when unknown.
// Any 2xx status is success; other statuses return an *UploadError.
func Put(ctx context.Context, client *http.Client, url string, body io.Reader, size int64, contentType string, auth *BasicAuth) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return err
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", contentType)
	if auth != nil {
		req.SetBasicAuth(auth.User, auth.Password)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UploadError{Status: resp.Status, StatusCode: resp.StatusCode, Body: string(b)}
	}
	return nil
}
