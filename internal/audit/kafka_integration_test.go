//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bothub/internal/audit"
	"bothub/pkg/testutil/containers"
)

func TestKafkaSink_WritesKeyedJSON(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "bothub.audit.test"
	sink, err := audit.NewKafkaSink(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.EnsureTopic(ctx, 1, 1))
	require.NoError(t, sink.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	event := audit.Event{
		ID:        "evt-1",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Action:    audit.ActionClientRegistered,
		ClientID:  "AA0001",
		BotIDs:    []string{"BA0001"},
	}
	require.NoError(t, sink.Write(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	assert.Equal(t, "AA0001", string(records[0].Key))
	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Action, got.Action)
	assert.Equal(t, event.BotIDs, got.BotIDs)
}
