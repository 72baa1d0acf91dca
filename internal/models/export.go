package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportStatus is the lifecycle state of an attendee export archive.
type ExportStatus string

const (
	ExportPending    ExportStatus = "pending"
	ExportProcessing ExportStatus = "processing"
	ExportCompleted  ExportStatus = "completed"
	ExportFailed     ExportStatus = "failed"
)

// AttendeeExport is an xlsx snapshot of a course's attendees archived to object storage.
type AttendeeExport struct {
	ID          uuid.UUID    `json:"id"`
	CourseID    uuid.UUID    `json:"courseId"`
	RequestedBy uuid.UUID    `json:"requestedBy"`
	Status      ExportStatus `json:"status"`
	S3Key       string       `json:"s3Key,omitempty"`
	RowCount    int          `json:"rowCount"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
