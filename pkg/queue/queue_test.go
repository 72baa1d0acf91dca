package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	payload := ExportPayload{ExportID: uuid.New(), CourseID: uuid.New()}
	job, err := NewJob(JobTypeAttendeeExport, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobTypeAttendeeExport, job.Type)
	assert.Zero(t, job.Attempt)

	var got ExportPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, payload, got)
}
