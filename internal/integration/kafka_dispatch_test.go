//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/building-energy-toolkit/internal/adapter/kafka"
	"github.com/couchcryptid/building-energy-toolkit/internal/config"
	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
	"github.com/couchcryptid/building-energy-toolkit/internal/observability"
	"github.com/couchcryptid/building-energy-toolkit/internal/parametric"
)

const testJobTopic = "test-simulation-jobs"

const studyYAML = `
name: integration-office
shape:
  kind: l_shape
  params:
    length: 40
    width: 30
    lower_end_width: 12
    upper_end_length: 15
    perimeter_depth: 4
stories:
  above_grade: 2
  floor_to_floor: 3.5
analyses:
  - type: sensitivity
    parameter: wall_u_value
    values: [0.2, 0.35, 0.6]
  - type: elimination
    parameters: [lighting_power_density, infiltration_ach]
`

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("bemkit-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestStudyDispatchToKafka runs a study through the driver with the Kafka run
// manager and reads every job back from the topic.
func TestStudyDispatchToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testJobTopic)

	cfg := &config.Config{
		DispatchMode:  config.DispatchKafka,
		KafkaBrokers:  []string{broker},
		KafkaJobTopic: testJobTopic,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := kafka.NewJobWriter(cfg, logger)
	defer writer.Close()

	require.NoError(t, writer.CheckReadiness(ctx))

	study, err := parametric.ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	driver := parametric.New(t.TempDir(), nil, writer, logger, observability.NewMetricsForTesting())
	res, err := driver.Run(ctx, study)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 5)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testJobTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	want := make(map[string]domain.Job, len(res.Jobs))
	for _, j := range res.Jobs {
		want[j.ID] = j
	}

	for range res.Jobs {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read job message")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}

		job, err := domain.DeserializeJob(msg.Value)
		require.NoError(t, err)

		expected, ok := want[job.ID]
		require.True(t, ok, "unexpected job %s", job.ID)
		assert.Equal(t, study.Name, string(msg.Key))
		assert.Equal(t, job.ID, headers["job_id"])
		assert.Equal(t, expected.Variant, headers["variant"])
		assert.Equal(t, expected.Variant, job.Variant)
		assert.Equal(t, expected.ModelPath, job.ModelPath)
		assert.Equal(t, expected.Analysis, job.Analysis)
		assert.FileExists(t, job.ModelPath)
		delete(want, job.ID)
	}
	assert.Empty(t, want)
}
