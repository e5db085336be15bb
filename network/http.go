package network

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultHttpTimeout = 30 * time.Second

type StatusError struct {
	Url        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.Url, e.StatusCode, string(e.Body))
}

// Http does a request and returns the response body. Non 2xx responses come back as *StatusError.
type Http interface {
	Do(req *http.Request) ([]byte, error)
}

type DefaultHttp struct {
	client *http.Client
}

func NewHttp() Http {
	return &DefaultHttp{
		client: &http.Client{Timeout: DefaultHttpTimeout},
	}
}

func (d *DefaultHttp) Do(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return buf, &StatusError{Url: req.URL.String(), StatusCode: resp.StatusCode, Body: buf}
	}

	return buf, nil
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
