//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"fleetdocs/internal/notify"
	"fleetdocs/internal/platform/config"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/testutil/containers"
)

func TestKafkaNotifier_ProducesKeyedRecord(t *testing.T) {
	broker := containers.StartRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: []string{broker}, Topic: "driver-document-expiry"}
	producer, err := notify.NewKafka(ctx, cfg)
	require.NoError(t, err)
	defer producer.Close()

	notification := notify.Notification{
		DriverID:     id.DriverID(uuid.New()),
		DocumentID:   id.DocumentID(uuid.New()),
		DocumentType: "license",
		ExpiryDate:   time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Second),
	}
	require.NoError(t, producer.Notify(ctx, notification))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, notification.DriverID.String(), string(records[0].Key))
	var got notify.Notification
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, notification.DocumentID, got.DocumentID)
	assert.Equal(t, "license", got.DocumentType)
	assert.True(t, notification.ExpiryDate.Equal(got.ExpiryDate))
}

func TestKafkaNotifier_TopicAlreadyExists(t *testing.T) {
	broker := containers.StartRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: []string{broker}, Topic: "driver-document-expiry"}
	first, err := notify.NewKafka(ctx, cfg)
	require.NoError(t, err)
	defer first.Close()

	// A second producer against the existing topic starts cleanly.
	second, err := notify.NewKafka(ctx, cfg)
	require.NoError(t, err)
	second.Close()
}
