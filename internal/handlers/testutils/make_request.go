// Package testutils drives a router in handler tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
)

type RequestOptions struct {
	headers map[string]string
	body    io.Reader
}

type RequestArgs struct {
	Router http.Handler
	Method string
	URL    string
}

// MakeRequest serves a single request on the router and returns the recorded
// response.
func MakeRequest(args RequestArgs, opts ...func(*RequestOptions) error) (*httptest.ResponseRecorder, error) {
	options := RequestOptions{headers: make(map[string]string)}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	request := httptest.NewRequest(args.Method, args.URL, options.body)
	for k, v := range options.headers {
		request.Header.Set(k, v)
	}

	recorder := httptest.NewRecorder()
	args.Router.ServeHTTP(recorder, request)
	return recorder, nil
}

func WithHeader(name, value string) func(*RequestOptions) error {
	return func(o *RequestOptions) error {
		o.headers[name] = value
		return nil
	}
}

// WithBearer authenticates the request with token.
func WithBearer(token string) func(*RequestOptions) error {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithJSON encodes v as the request body.
func WithJSON(v any) func(*RequestOptions) error {
	return func(o *RequestOptions) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		o.body = bytes.NewReader(data)
		o.headers["Content-Type"] = "application/json"
		return nil
	}
}

// WithBody sends a raw body with the given content type.
func WithBody(contentType string, body io.Reader) func(*RequestOptions) error {
	return func(o *RequestOptions) error {
		o.body = body
		o.headers["Content-Type"] = contentType
		return nil
	}
}
