package provider

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	events []StreamEvent
	idx    int
}

func (s *fakeStream) Recv() (StreamEvent, error) {
	if s.idx >= len(s.events) {
		return StreamEvent{}, io.EOF
	}
	ev := s.events[s.idx]
	s.idx++
	return ev, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeClient struct {
	calls   int
	failN   int // number of leading calls that fail
	failErr error
	events  []StreamEvent
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) SendMessagesStream(ctx context.Context, req Request) (Stream, error) {
	c.calls++
	if c.calls <= c.failN {
		return nil, c.failErr
	}
	return &fakeStream{events: c.events}, nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 5, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetryingClient_RetriesRetryableInitFailures(t *testing.T) {
	inner := &fakeClient{failN: 2, failErr: &StreamError{Kind: ErrNetwork, Message: "dial tcp: connection refused"},
		events: []StreamEvent{{Kind: KindMessageStop}}}
	client := WrapWithRetry(inner, fastRetryConfig())

	stream, err := client.SendMessagesStream(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, 3, inner.calls)

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, KindMessageStop, ev.Kind)
}

func TestRetryingClient_GivesUpAfterMaxAttempts(t *testing.T) {
	netErr := &StreamError{Kind: ErrOverloaded, Message: "529 overloaded"}
	inner := &fakeClient{failN: 99, failErr: netErr}
	client := WrapWithRetry(inner, fastRetryConfig())

	_, err := client.SendMessagesStream(context.Background(), Request{})
	require.Error(t, err)
	require.Equal(t, 5, inner.calls)
}

func TestRetryingClient_DoesNotRetryNonRetryableInitFailure(t *testing.T) {
	authErr := &StreamError{Kind: ErrAuth, Message: "401 unauthorized"}
	inner := &fakeClient{failN: 99, failErr: authErr}
	client := WrapWithRetry(inner, fastRetryConfig())

	_, err := client.SendMessagesStream(context.Background(), Request{})
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)
}

func TestRetryingClient_StopsRetryingWhenContextCancelled(t *testing.T) {
	netErr := &StreamError{Kind: ErrTimeout, Message: "deadline exceeded"}
	inner := &fakeClient{failN: 99, failErr: netErr}
	client := WrapWithRetry(inner, fastRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SendMessagesStream(ctx, Request{})
	require.Error(t, err)
}

func TestIsRetryableInitError(t *testing.T) {
	require.True(t, isRetryableInitError(&StreamError{Kind: ErrNetwork}))
	require.True(t, isRetryableInitError(&StreamError{Kind: ErrTimeout}))
	require.True(t, isRetryableInitError(&StreamError{Kind: ErrOverloaded}))
	require.False(t, isRetryableInitError(&StreamError{Kind: ErrAuth}))
	require.False(t, isRetryableInitError(&StreamError{Kind: ErrHTTPStatus}))
	require.True(t, isRetryableInitError(errors.New("dial tcp: connection reset by peer")))
	require.False(t, isRetryableInitError(nil))
}

func TestBackoff_GrowsExponentiallyAndCapsAtMax(t *testing.T) {
	cfg := RetryConfig{BaseBackoff: 10 * time.Millisecond, MaxBackoff: 25 * time.Millisecond}
	d1 := backoff(cfg, 1)
	d5 := backoff(cfg, 5)
	require.LessOrEqual(t, d1, 15*time.Millisecond)
	require.LessOrEqual(t, d5, 25*time.Millisecond)
	require.Less(t, d1, d5)
}
