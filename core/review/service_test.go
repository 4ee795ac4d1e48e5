package review

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/user"
)

type fakeRepo struct {
	reviews map[string]Review
	nextID  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reviews: make(map[string]Review)}
}

func (r *fakeRepo) CreateReview(ctx context.Context, rev Review) (Review, error) {
	r.nextID++
	rev.ID = strconv.Itoa(r.nextID)
	r.reviews[rev.ID] = rev
	return rev, nil
}

func (r *fakeRepo) QueryReviews(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Review, error) {
	var revs []Review
	for _, rev := range r.reviews {
		if filter.SpaceID != "" && rev.SpaceID != filter.SpaceID {
			continue
		}
		if filter.AuthorID != "" && rev.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Approved != nil && rev.IsApproved != *filter.Approved {
			continue
		}
		if filter.Rating != 0 && rev.Rating != filter.Rating {
			continue
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

func (r *fakeRepo) GetReview(ctx context.Context, id string) (Review, error) {
	rev, ok := r.reviews[id]
	if !ok {
		return Review{}, ErrNotFound
	}
	return rev, nil
}

func (r *fakeRepo) UpdateReview(ctx context.Context, rev Review) (Review, error) {
	if _, ok := r.reviews[rev.ID]; !ok {
		return Review{}, ErrNotFound
	}
	r.reviews[rev.ID] = rev
	return rev, nil
}

func (r *fakeRepo) DeleteReviewsByID(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		if _, ok := r.reviews[id]; ok {
			delete(r.reviews, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) GetReviewStats(ctx context.Context) (Stats, error) {
	var stats Stats
	for _, rev := range r.reviews {
		stats.TotalCount++
		if rev.IsApproved {
			stats.ApprovedCount++
		} else {
			stats.PendingCount++
		}
	}
	return stats, nil
}

// fakeBookingSvc serves a fixed set of bookings.
type fakeBookingSvc struct {
	booking.Service

	bookings []booking.Booking
}

func (svc *fakeBookingSvc) Query(filter booking.QueryFilter, ordering []core.DBOrdering) ([]booking.Booking, error) {
	var bkgs []booking.Booking
	for _, bkg := range svc.bookings {
		if filter.SpaceID != "" && bkg.SpaceID != filter.SpaceID {
			continue
		}
		if filter.TenantID != "" && bkg.TenantID != filter.TenantID {
			continue
		}
		if filter.StatusCode != "" && bkg.StatusCode != filter.StatusCode {
			continue
		}
		bkgs = append(bkgs, bkg)
	}
	return bkgs, nil
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepo()
	bookingSvc := &fakeBookingSvc{bookings: []booking.Booking{
		{ID: "bkg1", SpaceID: "space1", TenantID: "user1", StatusCode: booking.StatusCompleted},
	}}
	svc := NewService(repo, bookingSvc)
	author := user.User{ID: "user1", Username: "awesome"}

	rev, err := svc.Create(NewReview{
		SpaceID: "space1",
		Rating:  5,
		Comment: "Отличное помещение, всем рекомендую",
	}, author)
	require.NoError(t, err)
	assert.NotEmpty(t, rev.ID)
	assert.False(t, rev.IsApproved, "new reviews await moderation")
	assert.Equal(t, "bkg1", rev.BookingID, "completed booking should be linked")

	// only one review per author and space
	_, err = svc.Create(NewReview{SpaceID: "space1", Rating: 1, Comment: "Передумал, не очень"}, author)
	assert.Equal(t, ErrAlreadyReviewed, err)

	// another author is fine, no completed booking to link
	rev2, err := svc.Create(NewReview{
		SpaceID: "space1",
		Rating:  4,
		Comment: "Хорошее место для мероприятий",
	}, user.User{ID: "user2"})
	require.NoError(t, err)
	assert.Empty(t, rev2.BookingID)
}

func TestServiceModeration(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBookingSvc{})
	author := user.User{ID: "user1"}

	rev, err := svc.Create(NewReview{
		SpaceID: "space1",
		Rating:  4,
		Comment: "Хорошее место для мероприятий",
	}, author)
	require.NoError(t, err)

	// unapproved reviews are not listed publicly
	revs, err := svc.ListForSpace("space1")
	require.NoError(t, err)
	assert.Empty(t, revs)

	rev, err = svc.Approve(rev.ID)
	require.NoError(t, err)
	assert.True(t, rev.IsApproved)

	revs, err = svc.ListForSpace("space1")
	require.NoError(t, err)
	require.Len(t, revs, 1)

	// author edit sends the review back to moderation
	rev, err = svc.Update(rev.ID, UpdateReview{Rating: 3, Comment: "Обновлённый отзыв о месте"}, author)
	require.NoError(t, err)
	assert.False(t, rev.IsApproved)
	assert.Equal(t, 3, rev.Rating)

	// only the author may edit
	_, err = svc.Update(rev.ID, UpdateReview{Rating: 5, Comment: "Чужой отзыв меняю на свой"}, user.User{ID: "user2"})
	assert.Equal(t, ErrNotAuthor, err)

	// moderator edit keeps the approval flag as is
	_, err = svc.Approve(rev.ID)
	require.NoError(t, err)
	rev, err = svc.Moderate(rev.ID, UpdateReview{Rating: 4, Comment: "Поправленный модератором текст"})
	require.NoError(t, err)
	assert.True(t, rev.IsApproved)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)
	assert.Equal(t, 1, stats.ApprovedCount)

	require.NoError(t, svc.Delete(rev.ID))
	_, err = svc.GetByID(rev.ID)
	assert.Equal(t, ErrNotFound, err)
}
