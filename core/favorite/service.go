package favorite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

var ErrNotFound = errors.New("favorite not found")

type (
	Repository interface {
		// GetOrCreateFavorite returns the favorite for the pair, creating it
		// when missing; created reports whether a new row was inserted.
		GetOrCreateFavorite(ctx context.Context, userID, spaceID string) (fav Favorite, created bool, err error)
		GetFavorite(ctx context.Context, userID, spaceID string) (Favorite, error)
		DeleteFavorite(ctx context.Context, userID, spaceID string) error
		CountFavorites(ctx context.Context, userID string) (int, error)
		// QueryFavoriteSpaces returns the user's favorited spaces, most
		// recently favorited first.
		QueryFavoriteSpaces(ctx context.Context, userID string) ([]space.Space, error)
	}

	Service interface {
		// Toggle adds the space to the user's favorites, or removes it when
		// already present. Toggling twice restores the initial state.
		Toggle(usr user.User, spaceID string) (ToggleResult, error)
		Check(usr user.User, spaceID string) (CheckResult, error)
		Count(usr user.User) (int, error)
		ListSpaces(usr user.User) ([]space.Space, error)
	}

	service struct {
		repo     Repository
		spaceSvc space.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, spaceSvc space.Service) Service {
	return &service{
		repo:     repo,
		spaceSvc: spaceSvc,
	}
}

func (svc *service) Toggle(usr user.User, spaceID string) (ToggleResult, error) {
	// only active spaces can be favorited
	if _, err := svc.spaceSvc.GetByID(spaceID); err != nil {
		return ToggleResult{}, err
	}

	_, created, err := svc.repo.GetOrCreateFavorite(context.TODO(), usr.ID, spaceID)
	if err != nil {
		return ToggleResult{}, errors.Wrap(err, "toggling favorite")
	}

	res := ToggleResult{Status: StatusAdded, Message: "Added to favorites", IsFavorite: true}
	if !created {
		if err := svc.repo.DeleteFavorite(context.TODO(), usr.ID, spaceID); err != nil {
			return ToggleResult{}, errors.Wrap(err, "removing favorite")
		}
		res = ToggleResult{Status: StatusRemoved, Message: "Removed from favorites"}
	}

	count, err := svc.repo.CountFavorites(context.TODO(), usr.ID)
	if err != nil {
		return ToggleResult{}, errors.Wrap(err, "counting favorites")
	}
	res.FavoritesCount = count
	return res, nil
}

func (svc *service) Check(usr user.User, spaceID string) (CheckResult, error) {
	_, err := svc.repo.GetFavorite(context.TODO(), usr.ID, spaceID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return CheckResult{}, nil
		}
		return CheckResult{}, errors.Wrap(err, "checking favorite")
	}
	return CheckResult{IsFavorite: true}, nil
}

func (svc *service) Count(usr user.User) (int, error) {
	count, err := svc.repo.CountFavorites(context.TODO(), usr.ID)
	return count, errors.Wrap(err, "counting favorites")
}

func (svc *service) ListSpaces(usr user.User) ([]space.Space, error) {
	spaces, err := svc.repo.QueryFavoriteSpaces(context.TODO(), usr.ID)
	return spaces, errors.Wrap(err, "querying favorite spaces")
}
