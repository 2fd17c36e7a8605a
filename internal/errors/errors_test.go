package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfClassifiedError(t *testing.T) {
	err := NewConfiguration("limiter.acquire", "api %q is not registered", "svcA")
	require.Equal(t, KindConfiguration, KindOf(err))

	wrapped := fmt.Errorf("query failed: %w", err)
	require.Equal(t, KindConfiguration, KindOf(wrapped))
}

func TestKindOfTransportFailures(t *testing.T) {
	require.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	require.Equal(t, KindCanceled, KindOf(context.Canceled))
	require.Equal(t, KindCanceled, KindOf(fmt.Errorf("round trip: %w", context.Canceled)))
	require.Equal(t, KindTransport, KindOf(fmt.Errorf("connection refused")))
}

func TestRetryable(t *testing.T) {
	require.False(t, Retryable(KindConfiguration))
	require.False(t, Retryable(KindCacheWrite))
	require.False(t, Retryable(KindCanceled))
	require.True(t, Retryable(KindRateLimited))
	require.True(t, Retryable(KindTransport))
	require.True(t, Retryable(KindTimeout))
	require.True(t, Retryable(KindUpstream))
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatus(KindConfiguration))
	require.Equal(t, http.StatusTooManyRequests, HTTPStatus(KindRateLimited))
	require.Equal(t, http.StatusGatewayTimeout, HTTPStatus(KindTimeout))
	require.Equal(t, StatusClientClosedRequest, HTTPStatus(KindCanceled))
	require.Equal(t, http.StatusBadGateway, HTTPStatus(KindUpstream))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(Kind("unknown")))
}

func TestErrorString(t *testing.T) {
	err := NewUpstream("gateway.query", 503)
	require.Contains(t, err.Error(), "upstream")
	require.Contains(t, err.Error(), "503")
	require.Equal(t, 503, err.StatusCode)
}
