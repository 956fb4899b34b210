package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phillip-england/lmsportal/internal/logger"
)

const (
	fallbackErrorMessage   = "Server Error"
	invalidResponseMessage = "Server returned invalid response"
)

// RequestError is returned for non-2xx responses and transport failures.
// Status is zero when the request never produced a response.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Result is a successful (2xx) response.
type Result struct {
	Status int
	JSON   bool
	Raw    string
}

// Decode unmarshals a JSON body into v.
func (r *Result) Decode(v any) error {
	if !r.JSON {
		return fmt.Errorf("decode response: body is not json")
	}
	return json.Unmarshal([]byte(r.Raw), v)
}

// Message returns the "message" field of a JSON object body, if any.
func (r *Result) Message() string {
	if !r.JSON {
		return ""
	}
	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal([]byte(r.Raw), &payload); err != nil {
		return ""
	}
	if s, ok := payload.Message.(string); ok {
		return s
	}
	return ""
}

type Client struct {
	httpClient *http.Client
}

// NewClient returns a client. A zero timeout leaves requests unbounded except
// by their context.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Do sends one JSON request. The bearer header is attached only when token is
// non-empty. There are no retries.
func (c *Client) Do(ctx context.Context, method, url string, body any, token string) (*Result, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &RequestError{Message: "encode request body: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &RequestError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WarnLog(ctx, "%s %s failed: %v", method, url, err)
		return nil, &RequestError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Message: transportMessage(err), Err: err}
	}
	logger.FromContext(ctx).Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api request")

	return interpret(resp.StatusCode, raw)
}

func interpret(status int, raw []byte) (*Result, error) {
	ok := status >= 200 && status < 300
	text := string(raw)

	var parsed any
	isJSON := json.Unmarshal(raw, &parsed) == nil
	if !isJSON {
		if ok {
			return &Result{Status: status, Raw: text}, nil
		}
		message := strings.TrimSpace(text)
		if message == "" {
			message = invalidResponseMessage
		}
		return nil, &RequestError{Status: status, Message: message}
	}

	if !ok {
		return nil, &RequestError{Status: status, Message: errorMessage(parsed)}
	}
	return &Result{Status: status, JSON: true, Raw: text}, nil
}

// errorMessage picks detail, then message, then the generic fallback.
// FastAPI validation failures send detail as a list of {msg} objects.
func errorMessage(parsed any) string {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return fallbackErrorMessage
	}
	switch detail := obj["detail"].(type) {
	case string:
		if detail != "" {
			return detail
		}
	case []any:
		msgs := make([]string, 0, len(detail))
		for _, item := range detail {
			switch v := item.(type) {
			case map[string]any:
				if msg, ok := v["msg"].(string); ok && msg != "" {
					msgs = append(msgs, msg)
				}
			case string:
				if v != "" {
					msgs = append(msgs, v)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if message, ok := obj["message"].(string); ok && message != "" {
		return message
	}
	return fallbackErrorMessage
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return err.Error()
	}
}
