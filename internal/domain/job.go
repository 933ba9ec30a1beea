package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is a single simulation request.
type Job struct {
	ID          string    `json:"id" yaml:"id"`
	Study       string    `json:"study" yaml:"study"`
	Variant     string    `json:"variant" yaml:"variant"`
	Analysis    string    `json:"analysis" yaml:"analysis"`
	Parameter   string    `json:"parameter" yaml:"parameter"`
	Value       float64   `json:"value" yaml:"value"`
	ModelPath   string    `json:"model_path" yaml:"model_path"`
	WeatherFile string    `json:"weather_file,omitempty" yaml:"weather_file,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewJob stamps a job with the package clock. A nil id is replaced by a
// random UUID.
func NewJob(id uuid.UUID, study, variant string) Job {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Job{ID: id.String(), Study: study, Variant: variant, CreatedAt: Now()}
}

// SerializeJob encodes a job as a JSON message value.
func SerializeJob(job Job) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("serialize job %s: %w", job.ID, err)
	}
	return data, nil
}

// DeserializeJob decodes a JSON message value.
func DeserializeJob(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("deserialize job: %w", err)
	}
	return job, nil
}
