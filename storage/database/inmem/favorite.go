package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Honeysuckle52/interior/core/favorite"
	"github.com/Honeysuckle52/interior/core/space"
)

type favoriteRepository struct {
	db     *DB
	spaces *spaceRepository
}

var _ favorite.Repository = (*favoriteRepository)(nil)

func NewFavoriteRepository(db *DB) favorite.Repository {
	return &favoriteRepository{db: db, spaces: &spaceRepository{db: db}}
}

func favKey(userID, spaceID string) string { return userID + "/" + spaceID }

func (repo *favoriteRepository) GetOrCreateFavorite(ctx context.Context, userID, spaceID string) (favorite.Favorite, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := favKey(userID, spaceID)
	if fav, ok := repo.db.favorites[key]; ok {
		return *fav, false, nil
	}
	fav := favorite.Favorite{
		ID:        newID(),
		UserID:    userID,
		SpaceID:   spaceID,
		CreatedAt: time.Now().UTC(),
	}
	repo.db.favorites[key] = &fav
	return fav, true, nil
}

func (repo *favoriteRepository) GetFavorite(ctx context.Context, userID, spaceID string) (favorite.Favorite, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if fav, ok := repo.db.favorites[favKey(userID, spaceID)]; ok {
		return *fav, nil
	}
	return favorite.Favorite{}, favorite.ErrNotFound
}

func (repo *favoriteRepository) DeleteFavorite(ctx context.Context, userID, spaceID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := favKey(userID, spaceID)
	if _, ok := repo.db.favorites[key]; !ok {
		return favorite.ErrNotFound
	}
	delete(repo.db.favorites, key)
	return nil
}

func (repo *favoriteRepository) CountFavorites(ctx context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, fav := range repo.db.favorites {
		if fav.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (repo *favoriteRepository) QueryFavoriteSpaces(ctx context.Context, userID string) ([]space.Space, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var favs []favorite.Favorite
	for _, fav := range repo.db.favorites {
		if fav.UserID == userID {
			favs = append(favs, *fav)
		}
	}
	sort.SliceStable(favs, func(i, j int) bool { return favs[i].CreatedAt.After(favs[j].CreatedAt) })

	var spaces []space.Space
	for _, fav := range favs {
		if sp, ok := repo.db.spaces[fav.SpaceID]; ok {
			spaces = append(spaces, repo.spaces.denormalize(*sp))
		}
	}
	return spaces, nil
}
