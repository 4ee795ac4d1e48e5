package booking

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("booking not found")
	ErrUnavailable = errors.New("space is not available for the requested time")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the booking's current status.
	ErrInvalidTransition = errors.New("booking status change not allowed")
	// ErrCancellationClosed is returned when a tenant cancels too close to
	// the booking start. Moderators are not bound by the window.
	ErrCancellationClosed = errors.New("booking can no longer be cancelled")

	// minPrepayment is the floor for the prepayment amount.
	minPrepayment = decimal.NewFromInt(1)
)

type (
	Repository interface {
		CreateBooking(ctx context.Context, bkg Booking) (Booking, error)
		// QueryBookings applies AND operation on available QueryFilter fields.
		// Cancelled bookings are excluded unless QueryFilter.IncludeCancelled is set.
		QueryBookings(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Booking, error)
		GetBooking(ctx context.Context, id string) (Booking, error)
		// QueryOverlapping returns active bookings for the space whose
		// [start, end) interval intersects the given one.
		QueryOverlapping(ctx context.Context, spaceID string, start, end time.Time) ([]Booking, error)
		UpdateBooking(ctx context.Context, bkg Booking) (Booking, error)
		QueryStatuses(ctx context.Context) ([]Status, error)
		CreateTransaction(ctx context.Context, tx Transaction) (Transaction, error)
		UpdateTransaction(ctx context.Context, tx Transaction) error
		QueryTransactions(ctx context.Context, bookingID string) ([]Transaction, error)
	}

	Service interface {
		Quote(spaceID, periodID string, periodsCount int) (Quote, error)
		CheckAvailability(spaceID string, start, end time.Time) (bool, error)
		Create(nb NewBooking, tenant user.User) (Booking, error)
		Query(filter QueryFilter, ordering []core.DBOrdering) ([]Booking, error)
		GetByID(id string) (Booking, error)
		Confirm(id, moderatorComment string) (Booking, error)
		Cancel(id, moderatorComment string, force bool) (Booking, error)
		Complete(id string) (Booking, error)
		Statuses() ([]Status, error)
		Transactions(bookingID string) ([]Transaction, error)
	}

	service struct {
		repo     Repository
		spaceSvc space.Service
		userSvc  user.Service
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, spaceSvc space.Service, userSvc user.Service, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:     repo,
		spaceSvc: spaceSvc,
		userSvc:  userSvc,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// Quote calculates the total and prepayment for the given space, pricing
// period and number of periods. The prepayment is a configured percentage of
// the total, never below minPrepayment.
func (svc *service) Quote(spaceID, periodID string, periodsCount int) (Quote, error) {
	price, err := svc.spaceSvc.Price(spaceID, periodID)
	if err != nil {
		return Quote{}, err
	}
	period, err := svc.spaceSvc.PricingPeriod(periodID)
	if err != nil {
		return Quote{}, err
	}

	total := price.Price.Mul(decimal.NewFromInt(int64(periodsCount)))
	return Quote{
		PricePerPeriod: price.Price,
		Total:          total,
		Prepayment:     Prepayment(total, svc.conf.BookingPrepaymentPercent),
		Hours:          period.HoursCount * periodsCount,
		PeriodName:     period.Name,
	}, nil
}

// Prepayment returns percent% of total, floored at 1.00.
func Prepayment(total decimal.Decimal, percent int64) decimal.Decimal {
	p := total.Mul(decimal.NewFromInt(percent)).Div(decimal.NewFromInt(100)).Round(2)
	if p.LessThan(minPrepayment) {
		return minPrepayment
	}
	return p
}

// CheckAvailability reports whether the space has no active booking
// overlapping [start, end).
func (svc *service) CheckAvailability(spaceID string, start, end time.Time) (bool, error) {
	overlapping, err := svc.repo.QueryOverlapping(context.TODO(), spaceID, start, end)
	if err != nil {
		return false, errors.Wrap(err, "querying overlapping bookings")
	}
	return len(overlapping) == 0, nil
}

// Overlaps reports whether the two half-open intervals intersect.
func Overlaps(start, end, otherStart, otherEnd time.Time) bool {
	return start.Before(otherEnd) && end.After(otherStart)
}

func (svc *service) Create(nb NewBooking, tenant user.User) (Booking, error) {
	period, err := svc.spaceSvc.PricingPeriod(nb.PeriodID)
	if err != nil {
		return Booking{}, err
	}
	quote, err := svc.Quote(nb.SpaceID, nb.PeriodID, nb.PeriodsCount)
	if err != nil {
		return Booking{}, err
	}

	start := nb.StartDatetime.UTC()
	end := start.Add(time.Duration(period.HoursCount*nb.PeriodsCount) * time.Hour)

	available, err := svc.CheckAvailability(nb.SpaceID, start, end)
	if err != nil {
		return Booking{}, err
	}
	if !available {
		return Booking{}, ErrUnavailable
	}

	now := time.Now().UTC()
	bkg := Booking{
		SpaceID:        nb.SpaceID,
		TenantID:       tenant.ID,
		PeriodID:       nb.PeriodID,
		StatusCode:     StatusPending,
		StartDatetime:  start,
		EndDatetime:    end,
		PeriodsCount:   nb.PeriodsCount,
		PricePerPeriod: quote.PricePerPeriod,
		TotalAmount:    quote.Total,
		Comment:        nb.Comment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	bkg, err = svc.repo.CreateBooking(context.TODO(), bkg)
	if err != nil {
		return Booking{}, errors.Wrap(err, "creating booking")
	}

	tx := Transaction{
		BookingID:  bkg.ID,
		StatusCode: TxPending,
		Amount:     quote.Prepayment,
		CreatedAt:  now,
	}
	if _, err := svc.repo.CreateTransaction(context.TODO(), tx); err != nil {
		return Booking{}, errors.Wrap(err, "creating prepayment transaction")
	}
	return bkg, nil
}

func (svc *service) Query(filter QueryFilter, ordering []core.DBOrdering) ([]Booking, error) {
	bkgs, err := svc.repo.QueryBookings(context.TODO(), filter, ordering)
	return bkgs, errors.Wrap(err, "querying bookings")
}

func (svc *service) GetByID(id string) (Booking, error) {
	return svc.repo.GetBooking(context.TODO(), id)
}

// Confirm moves a pending booking to confirmed and notifies the tenant.
func (svc *service) Confirm(id, moderatorComment string) (Booking, error) {
	bkg, err := svc.repo.GetBooking(context.TODO(), id)
	if err != nil {
		return Booking{}, err
	}
	if bkg.StatusCode != StatusPending {
		return Booking{}, ErrInvalidTransition
	}
	bkg.StatusCode = StatusConfirmed
	bkg.ModeratorComment = moderatorComment
	bkg.UpdatedAt = time.Now().UTC()
	bkg, err = svc.repo.UpdateBooking(context.TODO(), bkg)
	if err != nil {
		return Booking{}, errors.Wrap(err, "updating booking")
	}
	go svc.sendConfirmationMail(bkg)
	return bkg, nil
}

// Cancel cancels a pending or confirmed booking and voids its pending
// transactions. Unless force is set, the configured cancellation window
// is enforced against the booking start.
func (svc *service) Cancel(id, moderatorComment string, force bool) (Booking, error) {
	bkg, err := svc.repo.GetBooking(context.TODO(), id)
	if err != nil {
		return Booking{}, err
	}
	if !bkg.IsCancellable() {
		return Booking{}, ErrInvalidTransition
	}
	if !force && svc.conf.BookingCancellationWindow > 0 &&
		time.Until(bkg.StartDatetime) < svc.conf.BookingCancellationWindow {
		return Booking{}, ErrCancellationClosed
	}
	bkg.StatusCode = StatusCancelled
	bkg.ModeratorComment = moderatorComment
	bkg.UpdatedAt = time.Now().UTC()
	bkg, err = svc.repo.UpdateBooking(context.TODO(), bkg)
	if err != nil {
		return Booking{}, errors.Wrap(err, "updating booking")
	}

	txs, err := svc.repo.QueryTransactions(context.TODO(), bkg.ID)
	if err != nil {
		return Booking{}, errors.Wrap(err, "querying transactions")
	}
	for _, tx := range txs {
		if tx.StatusCode != TxPending {
			continue
		}
		tx.StatusCode = TxCancelled
		if err := svc.repo.UpdateTransaction(context.TODO(), tx); err != nil {
			return Booking{}, errors.Wrap(err, "voiding transaction")
		}
	}
	return bkg, nil
}

// Complete moves a confirmed booking to completed.
func (svc *service) Complete(id string) (Booking, error) {
	bkg, err := svc.repo.GetBooking(context.TODO(), id)
	if err != nil {
		return Booking{}, err
	}
	if bkg.StatusCode != StatusConfirmed {
		return Booking{}, ErrInvalidTransition
	}
	bkg.StatusCode = StatusCompleted
	bkg.UpdatedAt = time.Now().UTC()
	bkg, err = svc.repo.UpdateBooking(context.TODO(), bkg)
	return bkg, errors.Wrap(err, "updating booking")
}

func (svc *service) Statuses() ([]Status, error) {
	statuses, err := svc.repo.QueryStatuses(context.TODO())
	return statuses, errors.Wrap(err, "querying booking statuses")
}

func (svc *service) Transactions(bookingID string) ([]Transaction, error) {
	txs, err := svc.repo.QueryTransactions(context.TODO(), bookingID)
	return txs, errors.Wrap(err, "querying transactions")
}

// sendConfirmationMail emails the tenant that their booking was confirmed,
// including the prepayment due.
func (svc *service) sendConfirmationMail(bkg Booking) {
	tenant, err := svc.userSvc.GetByID(bkg.TenantID)
	if err != nil || tenant.Email == "" {
		return
	}
	spc, err := svc.spaceSvc.GetByID(bkg.SpaceID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: tenant.FullNameOrUsername(), Address: tenant.Email}},
		Subject:      fmt.Sprintf("Your booking at %s is confirmed", spc.Title),
		TemplateName: "booking-confirmed",
		TemplateData: struct {
			User       user.User
			Booking    Booking
			Space      space.Space
			Prepayment decimal.Decimal
		}{tenant, bkg, spc, Prepayment(bkg.TotalAmount, svc.conf.BookingPrepaymentPercent)},
	})
}
