//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"storefront/internal/kyc/models"
	"storefront/internal/platform/config"
	"storefront/internal/platform/kafka"
	"storefront/internal/verification/events"
	"storefront/pkg/testutil/containers"
)

func TestKafkaSink_ProducesKeyedEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rp := containers.GetManager().GetRedpanda(t)
	const topic = "kyc.submissions.test"

	producer, err := kafka.New(config.KafkaConfig{Brokers: []string{rp.Broker}, Topic: topic})
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1))

	sink := events.NewKafkaSink(producer, topic)
	sub := &models.Submission{ID: "sub-42", Owner: "user-1", Variant: models.VariantVehicle, Status: models.StatusPending}
	event := events.FromSubmission(events.TypeSubmissionCreated, sub)
	event.ID = "evt-1"
	event.Timestamp = time.Now().UTC()
	require.NoError(t, sink.Write(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)

	assert.Equal(t, "sub-42", string(records[0].Key))
	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, events.TypeSubmissionCreated, got.Type)
	assert.Equal(t, models.VariantVehicle, got.Variant)
}
