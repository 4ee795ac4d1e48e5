package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/review"
)

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB) review.Repository {
	return &reviewRepository{db: db}
}

type reviewRow struct {
	ID         string      `db:"id"`
	SpaceID    string      `db:"space_id"`
	AuthorID   string      `db:"author_id"`
	BookingID  null.String `db:"booking_id"`
	Rating     int         `db:"rating"`
	Comment    string      `db:"comment"`
	IsApproved bool        `db:"is_approved"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (repo reviewRepository) row(rev review.Review) reviewRow {
	return reviewRow{
		ID:         rev.ID,
		SpaceID:    rev.SpaceID,
		AuthorID:   rev.AuthorID,
		BookingID:  null.NewString(rev.BookingID, rev.BookingID != ""),
		Rating:     rev.Rating,
		Comment:    rev.Comment,
		IsApproved: rev.IsApproved,
		CreatedAt:  rev.CreatedAt.UTC(),
		UpdatedAt:  rev.UpdatedAt.UTC(),
	}
}

func (repo reviewRepository) unrow(row reviewRow) review.Review {
	return review.Review{
		ID:         row.ID,
		SpaceID:    row.SpaceID,
		AuthorID:   row.AuthorID,
		BookingID:  row.BookingID.String,
		Rating:     row.Rating,
		Comment:    row.Comment,
		IsApproved: row.IsApproved,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to review.ErrNotFound
func (repo reviewRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return review.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo reviewRepository) CreateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	rev.ID = uuid.New().String()
	row := repo.row(rev)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO review (id, space_id, author_id, booking_id, rating, comment, is_approved, created_at, updated_at)
		VALUES (:id, :space_id, :author_id, :booking_id, :rating, :comment, :is_approved, :created_at, :updated_at)`,
		row)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "inserting review")
	}
	return repo.unrow(row), nil
}

func (repo reviewRepository) QueryReviews(ctx context.Context, filter review.QueryFilter, ordering []core.DBOrdering) ([]review.Review, error) {
	var conds []string
	var args []interface{}

	if filter.SpaceID != "" {
		conds = append(conds, "space_id = ?")
		args = append(args, filter.SpaceID)
	}
	if filter.AuthorID != "" {
		conds = append(conds, "author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.Approved != nil {
		conds = append(conds, "is_approved = ?")
		args = append(args, *filter.Approved)
	}
	if filter.Rating != 0 {
		conds = append(conds, "rating = ?")
		args = append(args, filter.Rating)
	}
	if filter.Search != "" {
		conds = append(conds, "comment ILIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	query := "SELECT * FROM review"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, "created_at DESC")

	var rows []reviewRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	revs := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		revs = append(revs, repo.unrow(row))
	}
	return revs, nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string) (review.Review, error) {
	var row reviewRow
	if err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind("SELECT * FROM review WHERE id = ?"), id); err != nil {
		return review.Review{}, repo.trapNoRowsErr(err, "getting review")
	}
	return repo.unrow(row), nil
}

func (repo reviewRepository) UpdateReview(ctx context.Context, rev review.Review) (review.Review, error) {
	row := repo.row(rev)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE review
		SET rating = :rating, comment = :comment, is_approved = :is_approved, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "updating review")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return review.Review{}, review.ErrNotFound
	}
	return repo.unrow(row), nil
}

func (repo reviewRepository) DeleteReviewsByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("DELETE FROM review WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting reviews")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting reviews")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo reviewRepository) GetReviewStats(ctx context.Context) (review.Stats, error) {
	var stats review.Stats
	err := repo.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) FILTER (WHERE NOT is_approved) AS pendingcount,
		       COUNT(*) FILTER (WHERE is_approved)     AS approvedcount,
		       COUNT(*)                                AS totalcount,
		       COALESCE(AVG(rating), 0)                AS avgrating
		FROM review`)
	return stats, errors.Wrap(err, "querying review stats")
}
