package client

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/globalmed/clinic-catalog/pkg/pager"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		want       bool
	}{
		{name: "client errors should not retry", errorClass: ErrorClassClient, want: false},
		{name: "server errors should retry", errorClass: ErrorClassServer, want: true},
		{name: "rate limit errors should retry", errorClass: ErrorClassRateLimit, want: true},
		{name: "network errors should retry", errorClass: ErrorClassNetwork, want: true},
		{name: "unknown error class should not retry", errorClass: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tt.errorClass, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{status: 200, want: ""},
		{status: 304, want: ""},
		{status: 400, want: ErrorClassClient},
		{status: 404, want: ErrorClassClient},
		{status: 429, want: ErrorClassRateLimit},
		{status: 500, want: ErrorClassServer},
		{status: 503, want: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 500,
				ErrorClass: ErrorClassServer,
				Endpoint:   "/doctors",
				Message:    "internal server error",
				Err:        errors.New("connection reset"),
			},
			expected: "API server error (status 500) on /doctors: internal server error: connection reset",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Endpoint:   "/medical-tests/unknown",
				Message:    "not found",
			},
			expected: "API client error (status 404) on /medical-tests/unknown: not found",
		},
		{
			name: "rate limit error",
			apiError: &APIError{
				StatusCode: 429,
				ErrorClass: ErrorClassRateLimit,
				Endpoint:   "/checkups",
				Message:    "Too Many Attempts.",
			},
			expected: "API rate_limit error (status 429) on /checkups: Too Many Attempts.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.apiError.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		StatusCode: 500,
		ErrorClass: ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if unwrapped := apiError.Unwrap(); unwrapped != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, wrappedErr)
	}
	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	if (&APIError{StatusCode: 404}).Unwrap() != nil {
		t.Error("Unwrap() of an error without cause should be nil")
	}
}

func TestAPIError_FetchErrorKind(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  pager.ErrorKind
	}{
		{class: ErrorClassNetwork, want: pager.KindNetwork},
		{class: ErrorClassServer, want: pager.KindServer},
		{class: ErrorClassClient, want: pager.KindServer},
		{class: ErrorClassRateLimit, want: pager.KindServer},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			err := error(&APIError{ErrorClass: tt.class})
			if got := pager.Classify(err); got != tt.want {
				t.Errorf("pager.Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewAPIError_Message(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "laravel message", body: `{"message":"Server Error"}`, want: "Server Error"},
		{name: "error field", body: `{"error":"maintenance"}`, want: "maintenance"},
		{name: "plain text", body: "upstream timed out", want: "upstream timed out"},
		{name: "empty body", body: "", want: "502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: http.StatusBadGateway,
				Status:     "502 Bad Gateway",
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}

			apiErr := newAPIError("/doctors", resp)
			if apiErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.want)
			}
			if apiErr.ErrorClass != ErrorClassServer {
				t.Errorf("ErrorClass = %q, want server", apiErr.ErrorClass)
			}
		})
	}
}
