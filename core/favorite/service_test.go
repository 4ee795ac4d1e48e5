package favorite

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

type fakeRepo struct {
	favorites map[string]Favorite // keyed by userID+"/"+spaceID
	nextID    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{favorites: make(map[string]Favorite)}
}

func key(userID, spaceID string) string { return userID + "/" + spaceID }

func (r *fakeRepo) GetOrCreateFavorite(ctx context.Context, userID, spaceID string) (Favorite, bool, error) {
	if fav, ok := r.favorites[key(userID, spaceID)]; ok {
		return fav, false, nil
	}
	r.nextID++
	fav := Favorite{
		ID:        strconv.Itoa(r.nextID),
		UserID:    userID,
		SpaceID:   spaceID,
		CreatedAt: time.Now().UTC(),
	}
	r.favorites[key(userID, spaceID)] = fav
	return fav, true, nil
}

func (r *fakeRepo) GetFavorite(ctx context.Context, userID, spaceID string) (Favorite, error) {
	fav, ok := r.favorites[key(userID, spaceID)]
	if !ok {
		return Favorite{}, ErrNotFound
	}
	return fav, nil
}

func (r *fakeRepo) DeleteFavorite(ctx context.Context, userID, spaceID string) error {
	if _, ok := r.favorites[key(userID, spaceID)]; !ok {
		return ErrNotFound
	}
	delete(r.favorites, key(userID, spaceID))
	return nil
}

func (r *fakeRepo) CountFavorites(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, fav := range r.favorites {
		if fav.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) QueryFavoriteSpaces(ctx context.Context, userID string) ([]space.Space, error) {
	var spaces []space.Space
	for _, fav := range r.favorites {
		if fav.UserID == userID {
			spaces = append(spaces, space.Space{ID: fav.SpaceID})
		}
	}
	return spaces, nil
}

// fakeSpaceSvc knows a fixed set of space IDs.
type fakeSpaceSvc struct {
	space.Service

	ids map[string]bool
}

func (svc *fakeSpaceSvc) GetByID(id string) (space.Space, error) {
	if !svc.ids[id] {
		return space.Space{}, space.ErrNotFound
	}
	return space.Space{ID: id}, nil
}

func newTestService() Service {
	return NewService(newFakeRepo(), &fakeSpaceSvc{ids: map[string]bool{"space1": true, "space2": true}})
}

func TestServiceToggle(t *testing.T) {
	svc := newTestService()
	usr := user.User{ID: "user1"}

	// first toggle adds
	res, err := svc.Toggle(usr, "space1")
	require.NoError(t, err)
	assert.Equal(t, StatusAdded, res.Status)
	assert.True(t, res.IsFavorite)
	assert.Equal(t, 1, res.FavoritesCount)
	assert.NotEmpty(t, res.Message)

	check, err := svc.Check(usr, "space1")
	require.NoError(t, err)
	assert.True(t, check.IsFavorite)

	// second toggle removes, restoring the initial state
	res, err = svc.Toggle(usr, "space1")
	require.NoError(t, err)
	assert.Equal(t, StatusRemoved, res.Status)
	assert.False(t, res.IsFavorite)
	assert.Equal(t, 0, res.FavoritesCount)

	check, err = svc.Check(usr, "space1")
	require.NoError(t, err)
	assert.False(t, check.IsFavorite)
}

func TestServiceToggleUnknownSpace(t *testing.T) {
	svc := newTestService()

	_, err := svc.Toggle(user.User{ID: "user1"}, "nope")
	assert.Equal(t, space.ErrNotFound, err)
}

func TestServiceCountPerUser(t *testing.T) {
	svc := newTestService()
	alice := user.User{ID: "alice"}
	bob := user.User{ID: "bob"}

	_, err := svc.Toggle(alice, "space1")
	require.NoError(t, err)
	_, err = svc.Toggle(alice, "space2")
	require.NoError(t, err)
	res, err := svc.Toggle(bob, "space1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.FavoritesCount, "counts are per user")

	count, err := svc.Count(alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	spaces, err := svc.ListSpaces(alice)
	require.NoError(t, err)
	assert.Len(t, spaces, 2)
}
