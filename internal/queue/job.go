package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Job asks a worker to extract one PDF.
type Job struct {
	JobID string `json:"job_id"`
	PDF   string `json:"pdf"`
	Out   string `json:"out,omitempty"`
	// Pages is the page budget; nil uses the worker's default.
	Pages *int   `json:"pages,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// Validate checks the fields a worker cannot run without.
func (j Job) Validate() error {
	if strings.TrimSpace(j.JobID) == "" {
		return errors.New("job_id is required")
	}
	if strings.TrimSpace(j.PDF) == "" {
		return errors.New("pdf is required")
	}
	if j.Pages != nil && *j.Pages < 0 {
		return fmt.Errorf("pages must be >= 0, got %d", *j.Pages)
	}
	return nil
}

// Encode marshals the job for the stream's data field.
func (j Job) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// DecodeJob parses a stream payload.
func DecodeJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}
