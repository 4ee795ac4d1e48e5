package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("review not found")
	ErrAlreadyReviewed = errors.New("you have already reviewed this space")
	ErrNotAuthor       = errors.New("you are not the author of this review")
)

type (
	Repository interface {
		CreateReview(ctx context.Context, rev Review) (Review, error)
		// QueryReviews applies AND operation on available QueryFilter fields.
		QueryReviews(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Review, error)
		GetReview(ctx context.Context, id string) (Review, error)
		UpdateReview(ctx context.Context, rev Review) (Review, error)
		DeleteReviewsByID(ctx context.Context, ids []string) (int, error)
		GetReviewStats(ctx context.Context) (Stats, error)
	}

	Service interface {
		// Create stores an unapproved review, one per author and space.
		Create(nr NewReview, author user.User) (Review, error)
		Query(filter QueryFilter, ordering []core.DBOrdering) ([]Review, error)
		// ListForSpace returns approved reviews for the space, newest first.
		ListForSpace(spaceID string) ([]Review, error)
		GetByID(id string) (Review, error)
		// Update lets the author edit their review; it goes back to moderation.
		Update(id string, ur UpdateReview, author user.User) (Review, error)
		// Moderate lets a moderator edit any review without resetting approval.
		Moderate(id string, ur UpdateReview) (Review, error)
		Approve(id string) (Review, error)
		Delete(ids ...string) error
		Stats() (Stats, error)
	}

	service struct {
		repo       Repository
		bookingSvc booking.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, bookingSvc booking.Service) Service {
	return &service{
		repo:       repo,
		bookingSvc: bookingSvc,
	}
}

func (svc *service) Create(nr NewReview, author user.User) (Review, error) {
	existing, err := svc.repo.QueryReviews(
		context.TODO(), QueryFilter{SpaceID: nr.SpaceID, AuthorID: author.ID}, nil)
	if err != nil {
		return Review{}, errors.Wrap(err, "querying reviews")
	}
	if len(existing) > 0 {
		return Review{}, ErrAlreadyReviewed
	}

	now := time.Now().UTC()
	rev := Review{
		SpaceID:   nr.SpaceID,
		AuthorID:  author.ID,
		Rating:    nr.Rating,
		Comment:   nr.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// link the tenant's completed booking when one exists
	bkgs, err := svc.bookingSvc.Query(booking.QueryFilter{
		SpaceID:    nr.SpaceID,
		TenantID:   author.ID,
		StatusCode: booking.StatusCompleted,
	}, nil)
	if err == nil && len(bkgs) > 0 {
		rev.BookingID = bkgs[0].ID
	}

	rev, err = svc.repo.CreateReview(context.TODO(), rev)
	return rev, errors.Wrap(err, "creating review")
}

func (svc *service) Query(filter QueryFilter, ordering []core.DBOrdering) ([]Review, error) {
	revs, err := svc.repo.QueryReviews(context.TODO(), filter, ordering)
	return revs, errors.Wrap(err, "querying reviews")
}

func (svc *service) ListForSpace(spaceID string) ([]Review, error) {
	approved := true
	return svc.Query(
		QueryFilter{SpaceID: spaceID, Approved: &approved},
		[]core.DBOrdering{{Field: "created_at"}},
	)
}

func (svc *service) GetByID(id string) (Review, error) {
	return svc.repo.GetReview(context.TODO(), id)
}

func (svc *service) Update(id string, ur UpdateReview, author user.User) (Review, error) {
	rev, err := svc.repo.GetReview(context.TODO(), id)
	if err != nil {
		return Review{}, err
	}
	if rev.AuthorID != author.ID {
		return Review{}, ErrNotAuthor
	}
	rev.Rating = ur.Rating
	rev.Comment = ur.Comment
	rev.IsApproved = false // edited reviews go back to moderation
	rev.UpdatedAt = time.Now().UTC()
	rev, err = svc.repo.UpdateReview(context.TODO(), rev)
	return rev, errors.Wrap(err, "updating review")
}

func (svc *service) Moderate(id string, ur UpdateReview) (Review, error) {
	rev, err := svc.repo.GetReview(context.TODO(), id)
	if err != nil {
		return Review{}, err
	}
	rev.Rating = ur.Rating
	rev.Comment = ur.Comment
	rev.UpdatedAt = time.Now().UTC()
	rev, err = svc.repo.UpdateReview(context.TODO(), rev)
	return rev, errors.Wrap(err, "updating review")
}

func (svc *service) Approve(id string) (Review, error) {
	rev, err := svc.repo.GetReview(context.TODO(), id)
	if err != nil {
		return Review{}, err
	}
	if rev.IsApproved {
		return rev, nil
	}
	rev.IsApproved = true
	rev.UpdatedAt = time.Now().UTC()
	rev, err = svc.repo.UpdateReview(context.TODO(), rev)
	return rev, errors.Wrap(err, "approving review")
}

func (svc *service) Delete(ids ...string) error {
	_, err := svc.repo.DeleteReviewsByID(context.TODO(), ids)
	return err
}

func (svc *service) Stats() (Stats, error) {
	stats, err := svc.repo.GetReviewStats(context.TODO())
	return stats, errors.Wrap(err, "querying review stats")
}
