package qr_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/internal/qr"
)

func TestIssuer_Issue(t *testing.T) {
	id := uuid.MustParse("7d4c2f0e-7b8a-4c2b-9d7e-1f2a3b4c5d6e")
	iss := qr.NewIssuer("https://courses.example.org/", 256)

	assert.Equal(t, "https://courses.example.org/register/"+id.String(), iss.RegistrationURL(id))

	code, err := iss.Issue(id)
	require.NoError(t, err)
	assert.Equal(t, iss.RegistrationURL(id), code.RegistrationURL)
	require.True(t, strings.HasPrefix(code.QRCode, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(code.QRCode, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	course := models.NewCourse(models.CourseInput{
		Name: "Excel", StartDate: time.Now(), Duration: "1 day", Location: "Lab", Instructors: "H. Adel",
	})
	require.NoError(t, store.Courses().Create(context.Background(), course))

	h := qr.NewHandler(qr.NewIssuer("http://localhost:3000", 128), store.Courses(), nil)
	r := gin.New()
	r.POST("/api/courses/:id/qr", h.Generate)
	r.GET("/api/courses/:id/qr.png", h.Image)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/courses/"+course.ID.String()+"/qr", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data qr.Code `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "http://localhost:3000/register/"+course.ID.String(), resp.Data.RegistrationURL)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses/"+course.ID.String()+"/qr.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/courses/"+uuid.NewString()+"/qr", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
