package courses_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/courses"
	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/internal/realtime"
)

type recordedEvent struct {
	courseID uuid.UUID
	event    string
}

type recorder struct{ events []recordedEvent }

func (r *recorder) Publish(courseID uuid.UUID, event string, _ interface{}) {
	r.events = append(r.events, recordedEvent{courseID, event})
}

type env struct {
	store  *memstore.Store
	router *gin.Engine
	events *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	events := &recorder{}
	h := courses.NewHandler(store.Courses(), store.Attendees(), events, nil)
	r := gin.New()
	api := r.Group("/api")
	api.GET("/courses", h.List)
	api.POST("/courses", h.Create)
	api.GET("/courses/:id", h.Get)
	api.GET("/courses/:id/public", h.Public)
	api.PUT("/courses/:id", h.Update)
	api.DELETE("/courses/:id", h.Delete)
	api.GET("/stats", h.Stats)
	return &env{store: store, router: r, events: events}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) (int, json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env.Data
}

func validCourse() map[string]interface{} {
	return map[string]interface{}{
		"name":        "Network Basics",
		"startDate":   "2024-05-01",
		"duration":    "3 days",
		"location":    "Hall A",
		"instructors": "Dr. Noor",
	}
}

func (e *env) createCourse(t *testing.T, body map[string]interface{}) models.Course {
	t.Helper()
	code, data := e.do(t, http.MethodPost, "/api/courses", body)
	require.Equal(t, http.StatusCreated, code)
	var c models.Course
	require.NoError(t, json.Unmarshal(data, &c))
	return c
}

func TestCreate_AppliesPolicyDefaults(t *testing.T) {
	e := newEnv(t)
	c := e.createCourse(t, validCourse())

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.AllowMultiplePerDevice)
	assert.Equal(t, 1, c.MaxPerDevice)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), c.StartDate)

	stored, err := e.store.Courses().GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MaxPerDevice)
	assert.False(t, stored.AllowMultiplePerDevice)
}

func TestCreate_PolicyNormalization(t *testing.T) {
	for name, tc := range map[string]struct {
		allow     interface{}
		max       interface{}
		wantAllow bool
		wantMax   int
	}{
		"explicit cap":       {false, 3, false, 3},
		"numeric string cap": {nil, "4", false, 4},
		"zero cap":           {nil, 0, false, 1},
		"negative cap":       {nil, -2, false, 1},
		"garbage cap":        {nil, "many", false, 1},
		"unlimited":          {true, 2, true, 2},
		"truthy string":      {"true", nil, false, 1},
		"truthy number":      {1, nil, false, 1},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			body := validCourse()
			if tc.allow != nil {
				body["allowMultiplePerDevice"] = tc.allow
			}
			if tc.max != nil {
				body["maxPerDevice"] = tc.max
			}
			c := e.createCourse(t, body)
			assert.Equal(t, tc.wantAllow, c.AllowMultiplePerDevice)
			assert.Equal(t, tc.wantMax, c.MaxPerDevice)
		})
	}
}

func TestCreate_ValidationNamesMissingFields(t *testing.T) {
	e := newEnv(t)
	body := validCourse()
	body["name"] = "   "
	body["startDate"] = "not a date"

	req, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/courses", bytes.NewReader(req))
	r.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"name", "startDate"}, resp.Fields)

	list, err := e.store.Courses().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_NewestFirstWithCounts(t *testing.T) {
	e := newEnv(t)
	first := e.createCourse(t, validCourse())
	second := e.createCourse(t, validCourse())

	ctrl := admission.NewController(e.store)
	_, err := ctrl.Register(context.Background(), admission.Request{
		CourseID: first.ID, DeviceID: "d1", Attendee: attendeeInput(),
	})
	require.NoError(t, err)

	code, data := e.do(t, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.CourseSummary
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 0, list[0].AttendeeCount)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 1, list[1].AttendeeCount)
}

func TestGet_IncludesAttendeesAndNotFound(t *testing.T) {
	e := newEnv(t)
	c := e.createCourse(t, validCourse())
	ctrl := admission.NewController(e.store)
	_, err := ctrl.Register(context.Background(), admission.Request{CourseID: c.ID, DeviceID: "d1", Attendee: attendeeInput()})
	require.NoError(t, err)

	code, data := e.do(t, http.MethodGet, "/api/courses/"+c.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	var detail models.CourseDetail
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Equal(t, c.ID, detail.ID)
	assert.Len(t, detail.Attendees, 1)

	code, _ = e.do(t, http.MethodGet, "/api/courses/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodGet, "/api/courses/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPublic_HidesPolicy(t *testing.T) {
	e := newEnv(t)
	body := validCourse()
	body["maxPerDevice"] = 5
	c := e.createCourse(t, body)

	code, data := e.do(t, http.MethodGet, "/api/courses/"+c.ID.String()+"/public", nil)
	require.Equal(t, http.StatusOK, code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Network Basics", got["name"])
	assert.NotContains(t, got, "maxPerDevice")
	assert.NotContains(t, got, "allowMultiplePerDevice")
}

func TestUpdate_KeepsIdentityAndAttendees(t *testing.T) {
	e := newEnv(t)
	body := validCourse()
	body["maxPerDevice"] = 3
	c := e.createCourse(t, body)
	ctrl := admission.NewController(e.store)
	for i := 0; i < 2; i++ {
		_, err := ctrl.Register(context.Background(), admission.Request{CourseID: c.ID, DeviceID: "d1", Attendee: attendeeInput()})
		require.NoError(t, err)
	}

	body["name"] = "Network Basics II"
	body["maxPerDevice"] = 1
	code, data := e.do(t, http.MethodPut, "/api/courses/"+c.ID.String(), body)
	require.Equal(t, http.StatusOK, code)
	var updated models.Course
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, c.ID, updated.ID)
	assert.Equal(t, "Network Basics II", updated.Name)
	assert.Equal(t, 1, updated.MaxPerDevice)
	assert.True(t, c.CreatedAt.Equal(updated.CreatedAt))

	n, err := e.store.Attendees().CountByDeviceAndCourse(context.Background(), "d1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	code, _ = e.do(t, http.MethodPut, "/api/courses/"+uuid.NewString(), body)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDelete_CascadesAndNotifies(t *testing.T) {
	e := newEnv(t)
	c := e.createCourse(t, validCourse())
	ctrl := admission.NewController(e.store)
	_, err := ctrl.Register(context.Background(), admission.Request{CourseID: c.ID, DeviceID: "d1", Attendee: attendeeInput()})
	require.NoError(t, err)

	code, data := e.do(t, http.MethodDelete, "/api/courses/"+c.ID.String(), nil)
	require.Equal(t, http.StatusOK, code)
	var got struct {
		AttendeesRemoved int `json:"attendeesRemoved"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.AttendeesRemoved)
	assert.Equal(t, []recordedEvent{{c.ID, realtime.EventCourseDeleted}}, e.events.events)

	stats, err := e.store.Courses().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, stats)

	code, _ = e.do(t, http.MethodDelete, "/api/courses/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	c := e.createCourse(t, validCourse())
	e.createCourse(t, validCourse())
	ctrl := admission.NewController(e.store)
	for _, d := range []string{"d1", "d2", "d3"} {
		_, err := ctrl.Register(context.Background(), admission.Request{CourseID: c.ID, DeviceID: d, Attendee: attendeeInput()})
		require.NoError(t, err)
	}

	code, data := e.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var s models.Stats
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, models.Stats{CoursesCount: 2, AttendeesCount: 3}, s)
}

func TestParseStartDate(t *testing.T) {
	d, ok := courses.ParseStartDate("2024-05-01T09:00:00+03:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), d)

	_, ok = courses.ParseStartDate("01/05/2024")
	assert.False(t, ok)
}

func attendeeInput() models.AttendeeInput {
	return models.AttendeeInput{
		NationalID: "1234567890",
		FirstName:  "Sara",
		SecondName: "Ali",
		ThirdName:  "Hassan",
		LastName:   "Omar",
		Phone:      "0500000000",
		JobTitle:   "Engineer",
		Workplace:  "Ministry",
	}
}
