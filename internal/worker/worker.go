package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/exports"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/pkg/queue"
	"github.com/qrcourses/backend/pkg/storage"
)

// JobQueue is the job source.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dlq bool, err error)
}

// Uploader stores export workbooks.
type Uploader interface {
	ExportsBucket() string
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) error
}

// ExportProcessor processes attendee export jobs: build the workbook, upload to S3, update the record.
type ExportProcessor struct {
	exports   exports.Store
	courses   exports.CourseGetter
	attendees exports.AttendeeLister
	uploader  Uploader
	queue     JobQueue
	logger    *zap.Logger
	backoff   time.Duration
}

// NewExportProcessor creates an attendee export processor.
func NewExportProcessor(store exports.Store, courses exports.CourseGetter, attendees exports.AttendeeLister, uploader Uploader, q JobQueue, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{
		exports:   store,
		courses:   courses,
		attendees: attendees,
		uploader:  uploader,
		queue:     q,
		logger:    logger,
		backoff:   queue.RetryBackoff,
	}
}

// Process executes one export job. Jobs whose export or course no longer
// exists finish without error so they are not retried.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAttendeeExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rec, err := p.exports.GetByID(ctx, payload.ExportID)
	if errors.Is(err, models.ErrExportNotFound) {
		p.logger.Info("export record gone, skipping", zap.String("export_id", payload.ExportID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get export: %w", err)
	}
	if rec.Status == models.ExportCompleted {
		p.logger.Info("export already completed", zap.String("export_id", rec.ID.String()))
		return nil
	}
	if err := p.exports.MarkProcessing(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	course, err := p.courses.GetByID(ctx, rec.CourseID)
	if errors.Is(err, models.ErrCourseNotFound) {
		_ = p.exports.MarkFailed(ctx, rec.ID, "course deleted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	list, err := p.attendees.ListByCourse(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("list attendees: %w", err)
	}
	buf, err := exports.Workbook(course, list)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	key := storage.ExportKey(course.ID.String(), rec.ID.String())
	size := int64(buf.Len())
	if err := p.uploader.Upload(ctx, p.uploader.ExportsBucket(), key, storage.XLSXContentType, bytes.NewReader(buf.Bytes()), size); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.exports.MarkCompleted(ctx, rec.ID, key, len(list)); err != nil {
		p.logger.Error("update export result failed", zap.Error(err), zap.String("export_id", rec.ID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	p.logger.Info("export completed",
		zap.String("export_id", rec.ID.String()),
		zap.String("s3_key", key),
		zap.Int("rows", len(list)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			dlq, reErr := p.queue.Retry(ctx, job)
			if reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			if dlq {
				p.markDead(ctx, job, err)
			}
			p.sleep(ctx)
		}
	}
}

func (p *ExportProcessor) markDead(ctx context.Context, job *queue.Job, cause error) {
	var payload queue.ExportPayload
	if json.Unmarshal(job.Payload, &payload) != nil {
		return
	}
	if err := p.exports.MarkFailed(ctx, payload.ExportID, cause.Error()); err != nil {
		p.logger.Warn("mark export failed", zap.String("export_id", payload.ExportID.String()), zap.Error(err))
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
