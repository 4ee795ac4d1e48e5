package inmemdb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/review"
)

type reviewRepository struct {
	db *DB
}

var _ review.Repository = (*reviewRepository)(nil)

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db}
}

func (repo *reviewRepository) CreateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rev.ID = newID()
	repo.db.reviews[rev.ID] = &rev
	return rev, nil
}

func (repo *reviewRepository) QueryReviews(ctx context.Context, filter review.QueryFilter, ordering []core.DBOrdering) ([]review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var reviews []review.Review
	for _, rev := range repo.db.reviews {
		if filter.SpaceID != "" && rev.SpaceID != filter.SpaceID {
			continue
		}
		if filter.AuthorID != "" && rev.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Approved != nil && rev.IsApproved != *filter.Approved {
			continue
		}
		if filter.Rating > 0 && rev.Rating != filter.Rating {
			continue
		}
		if filter.Search != "" && !containsFold(rev.Comment, filter.Search) {
			continue
		}
		reviews = append(reviews, *rev)
	}
	asc := createdAscending(ordering)
	sort.SliceStable(reviews, func(i, j int) bool {
		if asc {
			return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
		}
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

func (repo *reviewRepository) GetReview(ctx context.Context, id string) (review.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rev, ok := repo.db.reviews[id]; ok {
		return *rev, nil
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) UpdateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing, ok := repo.db.reviews[rev.ID]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	existing.Rating = rev.Rating
	existing.Comment = rev.Comment
	existing.IsApproved = rev.IsApproved
	existing.UpdatedAt = rev.UpdatedAt
	return *existing, nil
}

func (repo *reviewRepository) DeleteReviewsByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.reviews[id]; ok {
			delete(repo.db.reviews, id)
			n++
		}
	}
	return n, nil
}

func (repo *reviewRepository) GetReviewStats(ctx context.Context) (review.Stats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats review.Stats
	var sum int
	for _, rev := range repo.db.reviews {
		stats.TotalCount++
		if rev.IsApproved {
			stats.ApprovedCount++
		} else {
			stats.PendingCount++
		}
		sum += rev.Rating
	}
	if stats.TotalCount > 0 {
		stats.AvgRating = decimal.NewFromInt(int64(sum)).
			Div(decimal.NewFromInt(int64(stats.TotalCount))).Round(2)
	}
	return stats, nil
}
