package client

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

func serverError() error {
	return &APIError{StatusCode: 500, ErrorClass: ErrorClassServer, Message: "boom"}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 10*time.Second {
		t.Errorf("MaxBackoff = %v, want 10s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{
			name:            "server error config",
			errorClass:      ErrorClassServer,
			expectedInitial: 500 * time.Millisecond,
			expectedMax:     5 * time.Second,
		},
		{
			name:            "rate limit config",
			errorClass:      ErrorClassRateLimit,
			expectedInitial: 5 * time.Second,
			expectedMax:     30 * time.Second,
		},
		{
			name:            "network error config",
			errorClass:      ErrorClassNetwork,
			expectedInitial: 1 * time.Second,
			expectedMax:     10 * time.Second,
		},
		{
			name:            "unknown error class uses default",
			errorClass:      "",
			expectedInitial: 500 * time.Millisecond,
			expectedMax:     10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testLogger, RetryConfig{MaxAttempts: 3}, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	policy := RetryConfig{MaxAttempts: 3, InitialBackoff: 20 * time.Millisecond}

	callCount := 0
	start := time.Now()
	err := retryWithBackoff(context.Background(), testLogger, policy, func() error {
		callCount++
		if callCount < 3 {
			return serverError()
		}
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}

	// 20ms then 40ms, each with ±20% jitter
	if duration < 45*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	policy := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	callCount := 0
	err := retryWithBackoff(context.Background(), testLogger, policy, func() error {
		callCount++
		return serverError()
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("Expected wrapped *APIError with status 500, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_SingleAttempt(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), testLogger, RetryConfig{MaxAttempts: 1}, func() error {
		callCount++
		return serverError()
	})

	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("A single attempt should surface the error unwrapped")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Expected *APIError, got %T", err)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	clientErr := &APIError{StatusCode: 404, ErrorClass: ErrorClassClient, Message: "not found"}
	err := retryWithBackoff(context.Background(), testLogger, RetryConfig{MaxAttempts: 3}, func() error {
		callCount++
		return clientErr
	})

	if err != clientErr {
		t.Errorf("Expected the client error back, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
}

func TestRetryWithBackoff_NetworkErrorRetried(t *testing.T) {
	policy := RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}

	callCount := 0
	err := retryWithBackoff(context.Background(), testLogger, policy, func() error {
		callCount++
		return errors.New("dial tcp: connection refused")
	})

	if callCount != 2 {
		t.Errorf("Expected 2 calls, got %d", callCount)
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Minute}

	callCount := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := retryWithBackoff(ctx, testLogger, policy, func() error {
		callCount++
		return serverError()
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_Jitter(t *testing.T) {
	policy := RetryConfig{MaxAttempts: 2, InitialBackoff: 50 * time.Millisecond}

	for i := 0; i < 3; i++ {
		start := time.Now()
		_ = retryWithBackoff(context.Background(), testLogger, policy, func() error {
			return serverError()
		})
		duration := time.Since(start)

		// 50ms ±20%
		if duration < 40*time.Millisecond || duration > 500*time.Millisecond {
			t.Errorf("run %d: backoff = %v, want between 40ms and 60ms plus scheduling", i, duration)
		}
	}
}
