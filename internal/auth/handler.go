package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/pkg/response"
	"github.com/qrcourses/backend/pkg/utils"
)

// ContextAdminID is the gin context key the JWT middleware stores the admin id under.
const ContextAdminID = "admin_id"

// Store is the admin account persistence used by auth.
type Store interface {
	Create(ctx context.Context, username, passwordHash string) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string             `json:"token"`
	Admin models.AdminPublic `json:"admin"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	store  Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(store Store, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	admin, err := h.store.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, models.ErrAdminNotFound) {
			h.logger.Error("admin lookup", zap.Error(err))
			response.Internal(c, "failed to sign in")
			return
		}
		response.Unauthorized(c, "invalid username or password")
		return
	}
	if !utils.CheckPassword(req.Password, admin.PasswordHash) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(admin.ID, admin.Username)
	if err != nil {
		h.logger.Error("sign token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("admin signed in", zap.String("username", admin.Username))
	response.OK(c, TokenResponse{Token: token, Admin: admin.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	id := c.MustGet(ContextAdminID).(uuid.UUID)
	admin, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			response.Unauthorized(c, "admin no longer exists")
			return
		}
		h.logger.Error("admin lookup", zap.Error(err))
		response.Internal(c, "failed to load admin")
		return
	}
	response.OK(c, admin.ToPublic())
}

// CreateAdmin hashes password and stores a new admin account.
func CreateAdmin(ctx context.Context, store Store, username, password string) (*models.Admin, error) {
	if username == "" {
		return nil, &models.ValidationError{Fields: []string{"username"}}
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, username, hash)
}

// EnsureAdmin creates the bootstrap admin unless one with that username exists.
// Empty username disables seeding.
func EnsureAdmin(ctx context.Context, store Store, username, password string, logger *zap.Logger) error {
	if username == "" {
		return nil
	}
	_, err := store.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrAdminNotFound) {
		return err
	}
	if _, err := CreateAdmin(ctx, store, username, password); err != nil && !errors.Is(err, models.ErrUsernameTaken) {
		return err
	}
	logger.Info("bootstrap admin created", zap.String("username", username))
	return nil
}
