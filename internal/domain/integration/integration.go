// Package integration defines the stored OAuth connection between a business
// location and a review platform.
package integration

import (
	"time"

	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

// Integration holds the platform credentials for one location.
type Integration struct {
	ID           string          `json:"id"`
	LocationID   string          `json:"location_id"`
	Platform     review.Platform `json:"platform"`
	AccountID    string          `json:"account_id,omitempty"`
	AccessToken  string          `json:"-"`
	RefreshToken string          `json:"-"`
	TokenType    string          `json:"token_type,omitempty"`
	Expiry       time.Time       `json:"expiry"`
	LastSyncAt   *time.Time      `json:"last_sync_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Connected reports whether usable credentials are present.
func (i *Integration) Connected() bool {
	return i.AccessToken != "" || i.RefreshToken != ""
}
