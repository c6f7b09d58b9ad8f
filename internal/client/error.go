package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

// ParseError builds an APIError from an {"error": "..."} body
func ParseError(resp *resty.Response) error {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		return &APIError{StatusCode: resp.StatusCode(), Message: body.Error}
	}

	msg := http.StatusText(resp.StatusCode())
	if len(resp.Body()) > 0 {
		msg = string(resp.Body())
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// CheckResponse returns the transport error or, for non-2xx responses, an APIError
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return ParseError(resp)
	}
	return nil
}

func decode(resp *resty.Response, err error, target interface{}) error {
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	if target == nil || len(resp.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body(), target)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized checks if error is due to a missing or invalid token
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsNotFound checks if error is due to a missing resource
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsBadRequest checks if error is a 400. The API also reports conflicts
// such as a repeated like with 400.
func IsBadRequest(err error) bool {
	return statusOf(err) == http.StatusBadRequest
}

// IsServerError checks if error is due to a server error (5xx)
func IsServerError(err error) bool {
	return statusOf(err) >= 500
}
