package provider

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig bounds the retry policy for stream *initiation* only.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig mirrors the teacher's rate-limit-retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// retryingClient wraps a ProviderClient so Network/Timeout/Overloaded
// failures during request *initiation* are retried with exponential
// backoff. Per spec, once any event has been handed to the caller the
// stream is an observable sequence and is never retried — a mid-stream
// failure surfaces as a terminal Error event instead.
type retryingClient struct {
	inner  ProviderClient
	config RetryConfig
}

// WrapWithRetry adds bounded stream-initiation retry to client.
func WrapWithRetry(client ProviderClient, config RetryConfig) ProviderClient {
	return &retryingClient{inner: client, config: config}
}

func (r *retryingClient) Name() string { return r.inner.Name() }

func (r *retryingClient) SendMessagesStream(ctx context.Context, req Request) (Stream, error) {
	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		stream, err := r.inner.SendMessagesStream(ctx, req)
		if err == nil {
			return &firstEventGuardedStream{inner: stream}, nil
		}
		lastErr = err
		if !isRetryableInitError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= r.config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(r.config, attempt)):
		}
	}
	return nil, lastErr
}

// firstEventGuardedStream exists so a future wrapper layer could retry a
// stream that fails before its first event without reaching back into
// retryingClient's attempt loop; for now it just forwards.
type firstEventGuardedStream struct {
	inner    Stream
	gotFirst bool
}

func (s *firstEventGuardedStream) Recv() (StreamEvent, error) {
	ev, err := s.inner.Recv()
	if err == nil {
		s.gotFirst = true
	}
	return ev, err
}

func (s *firstEventGuardedStream) Close() error { return s.inner.Close() }

func isRetryableInitError(err error) bool {
	if err == nil {
		return false
	}
	var se *StreamError
	if errors.As(err, &se) {
		switch se.Kind {
		case ErrNetwork, ErrTimeout, ErrOverloaded:
			return true
		default:
			return false
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "timeout",
		"deadline exceeded", "temporary failure", "no such host", "429",
		"too many requests", "502", "bad gateway", "503", "service unavailable", "overloaded"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func backoff(c RetryConfig, attempt int) time.Duration {
	d := float64(c.BaseBackoff) * math.Pow(2, float64(attempt-1))
	jitter := (rand.Float64() - 0.5) * 0.5 * d
	d += jitter
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}
