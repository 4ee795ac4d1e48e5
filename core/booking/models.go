package booking

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
)

// Booking status codes
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Transaction status codes
const (
	TxPending   = "pending"
	TxSucceeded = "succeeded"
	TxCancelled = "cancelled"
)

// ActiveStatuses are the statuses that occupy a space's calendar.
var ActiveStatuses = []string{StatusPending, StatusConfirmed}

type (
	// Status is a booking status reference row.
	Status struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		Name      string `json:"name"`
		Color     string `json:"color"` // bootstrap color class
		SortOrder int    `json:"sort_order"`
	}

	Booking struct {
		ID               string          `json:"id"`
		SpaceID          string          `json:"space_id"`
		TenantID         string          `json:"tenant_id"`
		PeriodID         string          `json:"period_id"`
		StatusCode       string          `json:"status"`
		StartDatetime    time.Time       `json:"start_datetime"` // UTC
		EndDatetime      time.Time       `json:"end_datetime"`   // UTC
		PeriodsCount     int             `json:"periods_count"`
		PricePerPeriod   decimal.Decimal `json:"price_per_period"`
		TotalAmount      decimal.Decimal `json:"total_amount"`
		Comment          string          `json:"comment,omitempty"`
		ModeratorComment string          `json:"moderator_comment,omitempty"`
		CreatedAt        time.Time       `json:"created_at"` // UTC
		UpdatedAt        time.Time       `json:"updated_at"` // UTC
	}

	// Transaction records a payment against a booking.
	Transaction struct {
		ID            string          `json:"id"`
		BookingID     string          `json:"booking_id"`
		StatusCode    string          `json:"status"`
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"payment_method,omitempty"`
		ExternalID    string          `json:"external_id,omitempty"`
		CreatedAt     time.Time       `json:"created_at"` // UTC
	}

	// Quote is a price calculation for a prospective booking.
	Quote struct {
		PricePerPeriod decimal.Decimal `json:"price_per_period"`
		Total          decimal.Decimal `json:"total"`
		Prepayment     decimal.Decimal `json:"prepayment"`
		Hours          int             `json:"hours"`
		PeriodName     string          `json:"period_name"`
	}
)

func (b *Booking) IsActive() bool {
	return b.StatusCode == StatusPending || b.StatusCode == StatusConfirmed
}

// IsCancellable reports whether the booking may still be cancelled.
func (b *Booking) IsCancellable() bool { return b.IsActive() }

// NewBooking contains information needed to create a Booking.
type NewBooking struct {
	SpaceID       string    `json:"space_id" validate:"required"`
	PeriodID      string    `json:"period_id" validate:"required"`
	StartDatetime time.Time `json:"start_datetime" validate:"required"`
	PeriodsCount  int       `json:"periods_count" validate:"required,min=1"`
	Comment       string    `json:"comment"`
}

func (nb *NewBooking) Validate(validate *validator.Validate) error {
	nb.Comment = core.CleanString(nb.Comment)
	if err := validate.Struct(nb); err != nil {
		return err
	}
	if nb.StartDatetime.Before(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "start_datetime", Error: "cannot be in the past"})
	}
	return nil
}

// QueryFilter narrows booking listings; all fields are ANDed.
type QueryFilter struct {
	TenantID         string `query:"-"`
	SpaceID          string `query:"space"`
	StatusCode       string `query:"status"`
	IncludeCancelled bool   `query:"include_cancelled"`
}
