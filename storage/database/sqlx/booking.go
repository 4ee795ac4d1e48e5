package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
)

type bookingRepository struct {
	db *sqlx.DB
}

var _ booking.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(db *sqlx.DB) booking.Repository {
	return &bookingRepository{db: db}
}

type bookingRow struct {
	ID               string          `db:"id"`
	SpaceID          string          `db:"space_id"`
	TenantID         string          `db:"tenant_id"`
	PeriodID         string          `db:"period_id"`
	StatusCode       string          `db:"status_code"`
	StartDatetime    time.Time       `db:"start_datetime"`
	EndDatetime      time.Time       `db:"end_datetime"`
	PeriodsCount     int             `db:"periods_count"`
	PricePerPeriod   decimal.Decimal `db:"price_per_period"`
	TotalAmount      decimal.Decimal `db:"total_amount"`
	Comment          string          `db:"comment"`
	ModeratorComment string          `db:"moderator_comment"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

type transactionRow struct {
	ID            string          `db:"id"`
	BookingID     string          `db:"booking_id"`
	StatusCode    string          `db:"status_code"`
	Amount        decimal.Decimal `db:"amount"`
	PaymentMethod string          `db:"payment_method"`
	ExternalID    string          `db:"external_id"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (repo bookingRepository) row(bkg booking.Booking) bookingRow {
	return bookingRow{
		ID:               bkg.ID,
		SpaceID:          bkg.SpaceID,
		TenantID:         bkg.TenantID,
		PeriodID:         bkg.PeriodID,
		StatusCode:       bkg.StatusCode,
		StartDatetime:    bkg.StartDatetime.UTC(),
		EndDatetime:      bkg.EndDatetime.UTC(),
		PeriodsCount:     bkg.PeriodsCount,
		PricePerPeriod:   bkg.PricePerPeriod,
		TotalAmount:      bkg.TotalAmount,
		Comment:          bkg.Comment,
		ModeratorComment: bkg.ModeratorComment,
		CreatedAt:        bkg.CreatedAt.UTC(),
		UpdatedAt:        bkg.UpdatedAt.UTC(),
	}
}

func (repo bookingRepository) unrow(row bookingRow) booking.Booking {
	return booking.Booking(row)
}

// trapNoRowsErr maps psql "no rows" err to booking.ErrNotFound
func (repo bookingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return booking.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo bookingRepository) CreateBooking(ctx context.Context, bkg booking.Booking) (booking.Booking, error) {
	bkg.ID = uuid.New().String()
	row := repo.row(bkg)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO booking (id, space_id, tenant_id, period_id, status_code, start_datetime, end_datetime, periods_count, price_per_period, total_amount, comment, moderator_comment, created_at, updated_at)
		VALUES (:id, :space_id, :tenant_id, :period_id, :status_code, :start_datetime, :end_datetime, :periods_count, :price_per_period, :total_amount, :comment, :moderator_comment, :created_at, :updated_at)`,
		row)
	if err != nil {
		return booking.Booking{}, errors.Wrap(err, "inserting booking")
	}
	return repo.unrow(row), nil
}

func (repo bookingRepository) QueryBookings(ctx context.Context, filter booking.QueryFilter, ordering []core.DBOrdering) ([]booking.Booking, error) {
	var conds []string
	var args []interface{}

	if filter.TenantID != "" {
		conds = append(conds, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.SpaceID != "" {
		conds = append(conds, "space_id = ?")
		args = append(args, filter.SpaceID)
	}
	if filter.StatusCode != "" {
		conds = append(conds, "status_code = ?")
		args = append(args, filter.StatusCode)
	} else if !filter.IncludeCancelled {
		conds = append(conds, "status_code <> ?")
		args = append(args, booking.StatusCancelled)
	}

	query := "SELECT * FROM booking"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, "created_at DESC")

	var rows []bookingRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying bookings")
	}
	bkgs := make([]booking.Booking, 0, len(rows))
	for _, row := range rows {
		bkgs = append(bkgs, repo.unrow(row))
	}
	return bkgs, nil
}

func (repo bookingRepository) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	var row bookingRow
	if err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind("SELECT * FROM booking WHERE id = ?"), id); err != nil {
		return booking.Booking{}, repo.trapNoRowsErr(err, "getting booking")
	}
	return repo.unrow(row), nil
}

func (repo bookingRepository) QueryOverlapping(ctx context.Context, spaceID string, start, end time.Time) ([]booking.Booking, error) {
	query, args, err := sqlx.In(`
		SELECT * FROM booking
		WHERE space_id = ? AND status_code IN (?) AND start_datetime < ? AND end_datetime > ?`,
		spaceID, booking.ActiveStatuses, end.UTC(), start.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "querying overlapping bookings")
	}

	var rows []bookingRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying overlapping bookings")
	}
	bkgs := make([]booking.Booking, 0, len(rows))
	for _, row := range rows {
		bkgs = append(bkgs, repo.unrow(row))
	}
	return bkgs, nil
}

func (repo bookingRepository) UpdateBooking(ctx context.Context, bkg booking.Booking) (booking.Booking, error) {
	row := repo.row(bkg)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE booking
		SET status_code = :status_code, moderator_comment = :moderator_comment, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return booking.Booking{}, errors.Wrap(err, "updating booking")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return booking.Booking{}, booking.ErrNotFound
	}
	return repo.unrow(row), nil
}

func (repo bookingRepository) QueryStatuses(ctx context.Context) ([]booking.Status, error) {
	var statuses []booking.Status
	err := repo.db.SelectContext(ctx, &statuses, `
		SELECT id, code, name, color, sort_order AS sortorder FROM booking_status ORDER BY sort_order`)
	return statuses, errors.Wrap(err, "querying booking statuses")
}

func (repo bookingRepository) CreateTransaction(ctx context.Context, tx booking.Transaction) (booking.Transaction, error) {
	tx.ID = uuid.New().String()
	row := transactionRow(tx)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO transaction (id, booking_id, status_code, amount, payment_method, external_id, created_at)
		VALUES (:id, :booking_id, :status_code, :amount, :payment_method, :external_id, :created_at)`,
		row)
	if err != nil {
		return booking.Transaction{}, errors.Wrap(err, "inserting transaction")
	}
	return tx, nil
}

func (repo bookingRepository) UpdateTransaction(ctx context.Context, tx booking.Transaction) error {
	row := transactionRow(tx)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE transaction
		SET status_code = :status_code, payment_method = :payment_method, external_id = :external_id
		WHERE id = :id`,
		row)
	return errors.Wrap(err, "updating transaction")
}

func (repo bookingRepository) QueryTransactions(ctx context.Context, bookingID string) ([]booking.Transaction, error) {
	var rows []transactionRow
	err := repo.db.SelectContext(ctx, &rows,
		repo.db.Rebind("SELECT * FROM transaction WHERE booking_id = ? ORDER BY created_at"), bookingID)
	if err != nil {
		return nil, errors.Wrap(err, "querying transactions")
	}
	txs := make([]booking.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, booking.Transaction(row))
	}
	return txs, nil
}
