package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, Client{}, ClientFrom(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestRoundTrip(t *testing.T) {
	pinned := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTime(ctx, pinned)
	ctx = WithClientMetadata(ctx, "10.0.0.7", "bothub-agent/1.0", "bothub-agent (Linux)")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, pinned, Now(ctx))
	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
	assert.Equal(t, "bothub-agent/1.0", UserAgent(ctx))
	assert.Equal(t, "bothub-agent (Linux)", ClientPlatform(ctx))
}
