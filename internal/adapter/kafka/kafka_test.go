package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/building-energy-toolkit/internal/config"
	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	created := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	job := domain.Job{
		ID:        "job-1",
		Study:     "office",
		Variant:   "office_wall_u_value_0.3",
		Parameter: "wall_u_value",
		Value:     0.3,
		CreatedAt: created,
	}

	msg, err := serializeToMessage(job)
	require.NoError(t, err)

	assert.Equal(t, []byte("office"), msg.Key)
	assert.Contains(t, string(msg.Value), `"variant":"office_wall_u_value_0.3"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "job_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("job-1"), msg.Headers[0].Value)
	assert.Equal(t, "variant", msg.Headers[1].Key)
	assert.Equal(t, "created_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(created.Format(time.RFC3339)), msg.Headers[2].Value)

	back, err := domain.DeserializeJob(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, job.ID, back.ID)
	assert.InDelta(t, 0.3, back.Value, 1e-12)
}

func newTestWriter(brokers ...string) *JobWriter {
	cfg := &config.Config{KafkaBrokers: brokers, KafkaJobTopic: "jobs"}
	return NewJobWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestJobWriter_Name(t *testing.T) {
	w := newTestWriter("localhost:9092")
	assert.Equal(t, "kafka", w.Name())
	assert.Equal(t, "jobs", w.writer.Topic)
}

func TestJobWriter_DispatchEmpty(t *testing.T) {
	w := newTestWriter("localhost:9092")
	require.NoError(t, w.Dispatch(context.Background(), nil))
}

func TestJobWriter_CheckReadiness_NoBrokers(t *testing.T) {
	w := newTestWriter()
	require.Error(t, w.CheckReadiness(context.Background()))
}

func TestJobWriter_CheckReadiness_Unreachable(t *testing.T) {
	// Port 1 on loopback refuses connections.
	w := newTestWriter("127.0.0.1:1")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.Error(t, w.CheckReadiness(ctx))
}
