package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is an administrator account.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AdminPublic is Admin without credentials, for API responses.
type AdminPublic struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// ToPublic converts Admin to AdminPublic.
func (a *Admin) ToPublic() AdminPublic {
	return AdminPublic{ID: a.ID, Username: a.Username}
}
