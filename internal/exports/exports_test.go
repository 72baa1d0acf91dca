package exports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/internal/exports"
	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/pkg/queue"
	"github.com/qrcourses/backend/pkg/storage"
)

type fakeQueue struct {
	payloads []queue.ExportPayload
	err      error
}

func (q *fakeQueue) EnqueueExport(_ context.Context, p queue.ExportPayload) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, p)
	return nil
}

type fakePresigner struct{}

func (fakePresigner) ExportsBucket() string { return "bucket" }
func (fakePresigner) PresignExpire() time.Duration { return time.Minute }
func (fakePresigner) GeneratePresignedDownloadURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + bucket + "/" + key + "?sig=1", nil
}

func seed(t *testing.T, store *memstore.Store, name string, attendees int) *models.Course {
	t.Helper()
	ctx := context.Background()
	c := models.NewCourse(models.CourseInput{
		Name: name, StartDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Duration: "2 days", Location: "Hall C", Instructors: "M. Yousef", AllowMultiplePerDevice: true,
	})
	require.NoError(t, store.Courses().Create(ctx, c))
	ctrl := admission.NewController(store)
	for i := 0; i < attendees; i++ {
		_, err := ctrl.Register(ctx, admission.Request{CourseID: c.ID, DeviceID: "d", Attendee: models.AttendeeInput{
			NationalID: "0987654321", FirstName: "Omar", SecondName: "Khaled", ThirdName: "Saleh", LastName: "Nasser",
			Phone: "0555555555", ComputerNumber: "PC-3", JobTitle: "Instructor", Workplace: "School",
		}})
		require.NoError(t, err)
	}
	return c
}

func router(h *exports.Handler, adminID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextAdminID, adminID); c.Next() })
	r.GET("/api/courses/:id/attendees/export", h.Download)
	r.POST("/api/courses/:id/exports", h.Request)
	r.GET("/api/exports/:id", h.Get)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestWorkbook(t *testing.T) {
	store := memstore.New()
	c := seed(t, store, "Safety", 2)
	list, err := store.Attendees().ListByCourse(context.Background(), c.ID)
	require.NoError(t, err)

	buf, err := exports.Workbook(c, list)
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Attendees")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Safety | 2026-10-20 | Hall C", rows[0][0])
	assert.Equal(t, "National ID", rows[1][1])
	assert.Equal(t, "PC-3", rows[2][9])
	assert.Equal(t, "d", rows[3][10])
}

func TestFilename(t *testing.T) {
	c := &models.Course{ID: uuid.New(), Name: "Q1/Q2: Review", StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "attendees-Q1_Q2_ Review-2026-01-05.xlsx", exports.Filename(c))
}

func TestDownload(t *testing.T) {
	store := memstore.New()
	c := seed(t, store, "دورة الإسعافات", 1)
	h := exports.NewHandler(store.Exports(), store.Courses(), store.Attendees(), nil, nil, nil)
	r := router(h, uuid.New())

	w := serve(r, http.MethodGet, "/api/courses/"+c.ID.String()+"/attendees/export")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, storage.XLSXContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
	_, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)

	w = serve(r, http.MethodGet, "/api/courses/"+uuid.NewString()+"/attendees/export")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequest_NotConfigured(t *testing.T) {
	store := memstore.New()
	c := seed(t, store, "Safety", 0)
	h := exports.NewHandler(store.Exports(), store.Courses(), store.Attendees(), nil, nil, nil)

	w := serve(router(h, uuid.New()), http.MethodPost, "/api/courses/"+c.ID.String()+"/exports")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestAndStatus(t *testing.T) {
	store := memstore.New()
	c := seed(t, store, "Safety", 1)
	q := &fakeQueue{}
	adminID := uuid.New()
	h := exports.NewHandler(store.Exports(), store.Courses(), store.Attendees(), q, fakePresigner{}, nil)
	r := router(h, adminID)

	w := serve(r, http.MethodPost, "/api/courses/"+c.ID.String()+"/exports")
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		Data models.AttendeeExport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ExportPending, resp.Data.Status)
	assert.Equal(t, adminID, resp.Data.RequestedBy)
	require.Len(t, q.payloads, 1)
	assert.Equal(t, queue.ExportPayload{ExportID: resp.Data.ID, CourseID: c.ID}, q.payloads[0])

	w = serve(r, http.MethodGet, "/api/exports/"+resp.Data.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "downloadUrl")

	require.NoError(t, store.Exports().MarkCompleted(context.Background(), resp.Data.ID, "exports/k.xlsx", 1))
	w = serve(r, http.MethodGet, "/api/exports/"+resp.Data.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Data exports.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "https://s3.test/bucket/exports/k.xlsx?sig=1", status.Data.DownloadURL)

	w = serve(r, http.MethodGet, "/api/exports/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(r, http.MethodPost, "/api/courses/"+uuid.NewString()+"/exports")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequest_EnqueueFailureMarksRecord(t *testing.T) {
	store := memstore.New()
	c := seed(t, store, "Safety", 0)
	h := exports.NewHandler(store.Exports(), store.Courses(), store.Attendees(), &fakeQueue{err: errors.New("redis down")}, fakePresigner{}, nil)

	w := serve(router(h, uuid.New()), http.MethodPost, "/api/courses/"+c.ID.String()+"/exports")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
