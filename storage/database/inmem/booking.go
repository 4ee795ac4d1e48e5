package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
)

type bookingRepository struct {
	db *DB
}

var _ booking.Repository = (*bookingRepository)(nil)

func NewBookingRepository(db *DB) booking.Repository {
	return &bookingRepository{db: db}
}

func (repo *bookingRepository) CreateBooking(ctx context.Context, bkg booking.Booking) (booking.Booking, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	bkg.ID = newID()
	repo.db.bookings[bkg.ID] = &bkg
	return bkg, nil
}

func (repo *bookingRepository) QueryBookings(ctx context.Context, filter booking.QueryFilter, ordering []core.DBOrdering) ([]booking.Booking, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var bookings []booking.Booking
	for _, bkg := range repo.db.bookings {
		if filter.TenantID != "" && bkg.TenantID != filter.TenantID {
			continue
		}
		if filter.SpaceID != "" && bkg.SpaceID != filter.SpaceID {
			continue
		}
		if filter.StatusCode != "" {
			if bkg.StatusCode != filter.StatusCode {
				continue
			}
		} else if !filter.IncludeCancelled && bkg.StatusCode == booking.StatusCancelled {
			continue
		}
		bookings = append(bookings, *bkg)
	}
	asc := createdAscending(ordering)
	sort.SliceStable(bookings, func(i, j int) bool {
		if asc {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (repo *bookingRepository) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if bkg, ok := repo.db.bookings[id]; ok {
		return *bkg, nil
	}
	return booking.Booking{}, booking.ErrNotFound
}

func (repo *bookingRepository) QueryOverlapping(ctx context.Context, spaceID string, start, end time.Time) ([]booking.Booking, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var bookings []booking.Booking
	for _, bkg := range repo.db.bookings {
		if bkg.SpaceID != spaceID || !bkg.IsActive() {
			continue
		}
		if bkg.StartDatetime.Before(end) && bkg.EndDatetime.After(start) {
			bookings = append(bookings, *bkg)
		}
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].StartDatetime.Before(bookings[j].StartDatetime)
	})
	return bookings, nil
}

func (repo *bookingRepository) UpdateBooking(ctx context.Context, bkg booking.Booking) (booking.Booking, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing, ok := repo.db.bookings[bkg.ID]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	existing.StatusCode = bkg.StatusCode
	existing.ModeratorComment = bkg.ModeratorComment
	existing.UpdatedAt = bkg.UpdatedAt
	return *existing, nil
}

func (repo *bookingRepository) QueryStatuses(ctx context.Context) ([]booking.Status, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	statuses := make([]booking.Status, 0, len(repo.db.bookingStatuses))
	for _, st := range repo.db.bookingStatuses {
		statuses = append(statuses, *st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].SortOrder < statuses[j].SortOrder })
	return statuses, nil
}

func (repo *bookingRepository) CreateTransaction(ctx context.Context, tx booking.Transaction) (booking.Transaction, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tx.ID = newID()
	repo.db.transactions[tx.ID] = &tx
	return tx, nil
}

func (repo *bookingRepository) UpdateTransaction(ctx context.Context, tx booking.Transaction) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing, ok := repo.db.transactions[tx.ID]
	if !ok {
		return booking.ErrNotFound
	}
	existing.StatusCode = tx.StatusCode
	existing.PaymentMethod = tx.PaymentMethod
	existing.ExternalID = tx.ExternalID
	return nil
}

func (repo *bookingRepository) QueryTransactions(ctx context.Context, bookingID string) ([]booking.Transaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var txs []booking.Transaction
	for _, tx := range repo.db.transactions {
		if tx.BookingID == bookingID {
			txs = append(txs, *tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
	return txs, nil
}
