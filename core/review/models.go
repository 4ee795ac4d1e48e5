package review

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
)

const (
	commentMinLen = 10
	commentMaxLen = 2000
)

type (
	Review struct {
		ID         string    `json:"id"`
		SpaceID    string    `json:"space_id"`
		AuthorID   string    `json:"author_id"`
		BookingID  string    `json:"booking_id,omitempty"` // completed booking, when one exists
		Rating     int       `json:"rating"`               // 1..5
		Comment    string    `json:"comment"`
		IsApproved bool      `json:"is_approved"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	// Stats summarizes reviews for the moderation dashboard.
	Stats struct {
		PendingCount  int             `json:"pending_count"`
		ApprovedCount int             `json:"approved_count"`
		TotalCount    int             `json:"total_count"`
		AvgRating     decimal.Decimal `json:"avg_rating"`
	}
)

// NewReview contains information needed to create a Review.
type NewReview struct {
	SpaceID string `json:"space_id" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	if err := validate.Struct(nr); err != nil {
		return err
	}
	return validateComment(nr.Comment)
}

// UpdateReview contains information needed to update a Review.
type UpdateReview struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

func (ur *UpdateReview) Validate(validate *validator.Validate) error {
	ur.Comment = core.CleanString(ur.Comment)
	if err := validate.Struct(ur); err != nil {
		return err
	}
	return validateComment(ur.Comment)
}

func validateComment(comment string) error {
	n := len([]rune(comment))
	if n < commentMinLen {
		return core.NewValidationError(nil, core.FieldError{
			Field: "comment", Error: "must be at least 10 characters long"})
	}
	if n > commentMaxLen {
		return core.NewValidationError(nil, core.FieldError{
			Field: "comment", Error: "cannot exceed 2000 characters"})
	}
	if dirty, _ := ContainsProfanity(comment); dirty {
		return core.NewValidationError(nil, core.FieldError{
			Field: "comment", Error: "contains inappropriate language, please rephrase your review"})
	}
	return nil
}

// QueryFilter narrows review listings; all fields are ANDed.
type QueryFilter struct {
	SpaceID  string `query:"space"`
	AuthorID string `query:"-"`
	Approved *bool  `query:"approved"`
	Rating   int    `query:"rating"`
	// Search does a case-insensitive match on the comment.
	Search string `query:"search"`
}
