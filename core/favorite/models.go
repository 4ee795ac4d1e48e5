package favorite

import "time"

// Toggle result statuses
const (
	StatusAdded   = "added"
	StatusRemoved = "removed"
)

type (
	// Favorite marks a space as favorited by a user; one row per pair.
	Favorite struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		SpaceID   string    `json:"space_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// ToggleResult is the payload returned by the toggle endpoint.
	ToggleResult struct {
		Status         string `json:"status"` // "added" or "removed"
		Message        string `json:"message"`
		FavoritesCount int    `json:"favorites_count"`
		IsFavorite     bool   `json:"is_favorite"`
	}

	// CheckResult is the payload returned by the check endpoint.
	CheckResult struct {
		IsFavorite bool `json:"is_favorite"`
	}
)
