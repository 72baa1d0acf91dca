package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/pkg/utils"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	id := uuid.New()
	token, err := svc.Generate(id, "root")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AdminID)
	assert.Equal(t, "root", claims.Username)

	sid, err := svc.AdminIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), sid)
}

func TestJWT_RejectsForeignSecretAndExpired(t *testing.T) {
	token, err := auth.NewJWTService("other", 1).Generate(uuid.New(), "x")
	require.NoError(t, err)
	_, err = auth.NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	expired, err := auth.NewJWTService("secret", -1).Generate(uuid.New(), "x")
	require.NoError(t, err)
	_, err = auth.NewJWTService("secret", 1).Validate(expired)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	store := memstore.New().Admins()
	ctx := context.Background()

	require.NoError(t, auth.EnsureAdmin(ctx, store, "root", "s3cret-pass", zap.NewNop()))
	require.NoError(t, auth.EnsureAdmin(ctx, store, "root", "another-pass", zap.NewNop()))

	a, err := store.GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("s3cret-pass", a.PasswordHash))
	assert.NoError(t, auth.EnsureAdmin(ctx, store, "", "", zap.NewNop()))
}

func TestCreateAdmin_Validation(t *testing.T) {
	store := memstore.New().Admins()
	ctx := context.Background()

	_, err := auth.CreateAdmin(ctx, store, "root", "short")
	assert.ErrorIs(t, err, utils.ErrPasswordTooShort)

	_, err = auth.CreateAdmin(ctx, store, "root", "long-enough")
	require.NoError(t, err)
	_, err = auth.CreateAdmin(ctx, store, "root", "long-enough")
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New().Admins()
	_, err := auth.CreateAdmin(context.Background(), store, "root", "s3cret-pass")
	require.NoError(t, err)
	jwtSvc := auth.NewJWTService("secret", 1)
	h := auth.NewHandler(store, jwtSvc, nil)
	r := gin.New()
	r.POST("/api/auth/login", h.Login)

	login := func(user, pass string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"username": user, "password": pass})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := login("root", "s3cret-pass")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data auth.TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "root", resp.Data.Admin.Username)
	_, err = jwtSvc.Validate(resp.Data.Token)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, login("root", "wrong-pass").Code)
	assert.Equal(t, http.StatusUnauthorized, login("nobody", "s3cret-pass").Code)
	assert.Equal(t, http.StatusBadRequest, login("", "").Code)
}
