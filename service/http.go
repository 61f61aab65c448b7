package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airbusgeo/stac-uploader/service/log"
)

// Transport performs an HTTP request and returns the status and the body.
// Implementations return an ErrRemote on non-2xx responses.
type Transport interface {
	Do(ctx context.Context, method, url string, body []byte, header http.Header) (int, []byte, error)
}

// HTTPClient implements Transport on top of an http.Client.
// Requests failing with a temporary error are retried with an exponential backoff.
type HTTPClient struct {
	Client    *http.Client
	Retries   int
	BaseDelay time.Duration
}

// NewHTTPClient creates an HTTPClient. If client is nil, http.DefaultClient is used.
func NewHTTPClient(client *http.Client, retries int) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{Client: client, Retries: retries, BaseDelay: 500 * time.Millisecond}
}

// Do implements Transport
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, header http.Header) (int, []byte, error) {
	var status int
	var respBody []byte
	err := Retriable(ctx, func() error {
		var err error
		status, respBody, err = c.do(ctx, method, url, body, header)
		if err != nil && !Temporary(err) {
			return MakeFatal(err)
		}
		if err != nil {
			log.Logger(ctx).Sugar().Debugf("%s %s: %v", method, url, err)
		}
		return err
	}, c.BaseDelay, c.Retries+1)
	return status, respBody, err
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body []byte, header http.Header) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, MakeFatal(fmt.Errorf("NewRequest: %w", err))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, MakeTemporary(fmt.Errorf("ReadAll: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, respBody, ResponseError(method, url, resp.StatusCode, respBody)
	}
	return resp.StatusCode, respBody, nil
}

// CheckResponse reads and closes the body of a non-2xx response and returns the corresponding ErrRemote
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	method, url := "", ""
	if resp.Request != nil {
		method, url = resp.Request.Method, resp.Request.URL.String()
	}
	return ResponseError(method, url, resp.StatusCode, body)
}
