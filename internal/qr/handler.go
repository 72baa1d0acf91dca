package qr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/pkg/response"
)

// CourseGetter resolves courses.
type CourseGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

// Handler serves course QR codes.
type Handler struct {
	issuer  *Issuer
	courses CourseGetter
	logger  *zap.Logger
}

// NewHandler creates a QR handler.
func NewHandler(issuer *Issuer, courses CourseGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, courses: courses, logger: logger}
}

// Generate handles POST /courses/:id/qr.
func (h *Handler) Generate(c *gin.Context) {
	id, ok := h.course(c)
	if !ok {
		return
	}
	code, err := h.issuer.Issue(id)
	if err != nil {
		h.logger.Error("issue qr", zap.String("course_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to generate qr code")
		return
	}
	response.OK(c, code)
}

// Image handles GET /courses/:id/qr.png for printing.
func (h *Handler) Image(c *gin.Context) {
	id, ok := h.course(c)
	if !ok {
		return
	}
	png, err := h.issuer.PNG(id)
	if err != nil {
		h.logger.Error("issue qr", zap.String("course_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to generate qr code")
		return
	}
	c.Header("Content-Disposition", `inline; filename="course-`+id.String()+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) course(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return uuid.Nil, false
	}
	if _, err := h.courses.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrCourseNotFound) {
			response.NotFound(c, "course not found")
			return uuid.Nil, false
		}
		h.logger.Error("get course", zap.Error(err))
		response.Internal(c, "failed to get course")
		return uuid.Nil, false
	}
	return id, true
}
