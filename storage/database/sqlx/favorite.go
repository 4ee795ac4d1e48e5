package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core/favorite"
	"github.com/Honeysuckle52/interior/core/space"
)

type favoriteRepository struct {
	db *sqlx.DB

	// spaces loads the favorited spaces with their relations
	spaces *spaceRepository
}

var _ favorite.Repository = (*favoriteRepository)(nil) // interface compliance check

func NewFavoriteRepository(db *sqlx.DB) favorite.Repository {
	return &favoriteRepository{db: db, spaces: &spaceRepository{db: db}}
}

type favoriteRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	SpaceID   string    `db:"space_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo favoriteRepository) GetOrCreateFavorite(ctx context.Context, userID, spaceID string) (favorite.Favorite, bool, error) {
	fav, err := repo.GetFavorite(ctx, userID, spaceID)
	if err == nil {
		return fav, false, nil
	}
	if errors.Cause(err) != favorite.ErrNotFound {
		return favorite.Favorite{}, false, err
	}

	row := favoriteRow{
		ID:        uuid.New().String(),
		UserID:    userID,
		SpaceID:   spaceID,
		CreatedAt: time.Now().UTC(),
	}
	// ON CONFLICT keeps concurrent toggles from double-inserting
	res, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO favorite (id, user_id, space_id, created_at)
		VALUES (:id, :user_id, :space_id, :created_at)
		ON CONFLICT (user_id, space_id) DO NOTHING`,
		row)
	if err != nil {
		return favorite.Favorite{}, false, errors.Wrap(err, "inserting favorite")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fav, err := repo.GetFavorite(ctx, userID, spaceID)
		return fav, false, err
	}
	return favorite.Favorite(row), true, nil
}

func (repo favoriteRepository) GetFavorite(ctx context.Context, userID, spaceID string) (favorite.Favorite, error) {
	var row favoriteRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind("SELECT * FROM favorite WHERE user_id = ? AND space_id = ?"), userID, spaceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return favorite.Favorite{}, favorite.ErrNotFound
		}
		return favorite.Favorite{}, errors.Wrap(err, "getting favorite")
	}
	return favorite.Favorite(row), nil
}

func (repo favoriteRepository) DeleteFavorite(ctx context.Context, userID, spaceID string) error {
	res, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("DELETE FROM favorite WHERE user_id = ? AND space_id = ?"), userID, spaceID)
	if err != nil {
		return errors.Wrap(err, "deleting favorite")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return favorite.ErrNotFound
	}
	return nil
}

func (repo favoriteRepository) CountFavorites(ctx context.Context, userID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		repo.db.Rebind("SELECT COUNT(*) FROM favorite WHERE user_id = ?"), userID)
	return count, errors.Wrap(err, "counting favorites")
}

func (repo favoriteRepository) QueryFavoriteSpaces(ctx context.Context, userID string) ([]space.Space, error) {
	query := selectSpaces + `
	JOIN favorite f ON f.space_id = s.id
	WHERE f.user_id = ?
	ORDER BY f.created_at DESC`

	var rows []spaceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), userID); err != nil {
		return nil, errors.Wrap(err, "querying favorite spaces")
	}
	spaces := make([]space.Space, 0, len(rows))
	for _, row := range rows {
		spaces = append(spaces, repo.spaces.unrow(row))
	}
	if err := repo.spaces.loadRelations(ctx, spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}
