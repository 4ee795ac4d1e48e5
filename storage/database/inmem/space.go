package inmemdb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/space"
)

type spaceRepository struct {
	db *DB
}

var _ space.Repository = (*spaceRepository)(nil)

func NewSpaceRepository(db *DB) space.Repository {
	return &spaceRepository{db: db}
}

// AddSpaceImage attaches an image to a stored space, assigning its ID.
func (db *DB) AddSpaceImage(img space.Image) (space.Image, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	sp, ok := db.spaces[img.SpaceID]
	if !ok {
		return space.Image{}, space.ErrNotFound
	}
	img.ID = newID()
	sp.Images = append(sp.Images, img)
	return img, nil
}

// AddSpacePrice attaches a price to a stored space, assigning its ID.
func (db *DB) AddSpacePrice(p space.Price) (space.Price, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	sp, ok := db.spaces[p.SpaceID]
	if !ok {
		return space.Price{}, space.ErrNotFound
	}
	p.ID = newID()
	sp.Prices = append(sp.Prices, p)
	return p, nil
}

// denormalize copies the stored space and computes the read-only
// aggregates the SQL queries return.
func (repo *spaceRepository) denormalize(sp space.Space) space.Space {
	minPrice := decimal.Zero
	for _, p := range sp.Prices {
		if p.IsActive != nil && !*p.IsActive {
			continue
		}
		if minPrice.IsZero() || p.Price.LessThan(minPrice) {
			minPrice = p.Price
		}
	}
	sp.MinPrice = minPrice

	var sum, n int
	for _, rev := range repo.db.reviews {
		if rev.SpaceID == sp.ID && rev.IsApproved {
			sum += rev.Rating
			n++
		}
	}
	if n > 0 {
		sp.AvgRating = float64(sum) / float64(n)
	}
	return sp
}

func (repo *spaceRepository) CreateSpace(ctx context.Context, sp space.Space) (space.Space, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.spaces {
		if other.Slug == sp.Slug {
			return space.Space{}, space.ErrSlugExists
		}
	}
	sp.ID = newID()
	sp.Images = nil
	sp.Prices = nil
	repo.db.spaces[sp.ID] = &sp
	return sp, nil
}

func (repo *spaceRepository) QuerySpaces(ctx context.Context, filter *space.QueryFilter, ordering []core.DBOrdering, includeInactive bool) ([]space.Space, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var spaces []space.Space
	for _, sp := range repo.db.spaces {
		if !includeInactive && (sp.IsActive == nil || !*sp.IsActive) {
			continue
		}
		cand := repo.denormalize(*sp)
		if filter != nil && !matchSpace(cand, filter) {
			continue
		}
		spaces = append(spaces, cand)
	}
	asc := createdAscending(ordering)
	sort.SliceStable(spaces, func(i, j int) bool {
		if asc {
			return spaces[i].CreatedAt.Before(spaces[j].CreatedAt)
		}
		return spaces[i].CreatedAt.After(spaces[j].CreatedAt)
	})
	return spaces, nil
}

func matchSpace(sp space.Space, filter *space.QueryFilter) bool {
	if filter.Search != "" &&
		!containsFold(sp.Title, filter.Search) &&
		!containsFold(sp.Address, filter.Search) &&
		!containsFold(sp.Description, filter.Search) {
		return false
	}
	if filter.CityID != "" && sp.CityID != filter.CityID {
		return false
	}
	if filter.CategoryID != "" && sp.CategoryID != filter.CategoryID {
		return false
	}
	if filter.MinCapacity > 0 && sp.MaxCapacity < filter.MinCapacity {
		return false
	}
	if !filter.MaxPrice.IsZero() {
		found := false
		for _, p := range sp.Prices {
			if p.IsActive != nil && !*p.IsActive {
				continue
			}
			if p.Price.LessThanOrEqual(filter.MaxPrice) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Featured != nil && sp.IsFeatured != *filter.Featured {
		return false
	}
	return true
}

func (repo *spaceRepository) GetSpace(ctx context.Context, filter space.GetFilter) (space.Space, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.getSpace(filter)
}

func (repo *spaceRepository) getSpace(filter space.GetFilter) (space.Space, error) {
	if filter.ID != "" {
		if sp, ok := repo.db.spaces[filter.ID]; ok {
			return repo.denormalize(*sp), nil
		}
		return space.Space{}, space.ErrNotFound
	}
	if filter.Slug != "" {
		for _, sp := range repo.db.spaces {
			if sp.Slug == filter.Slug {
				return repo.denormalize(*sp), nil
			}
		}
	}
	return space.Space{}, space.ErrNotFound
}

func (repo *spaceRepository) UpdateSpace(ctx context.Context, sp space.Space) (space.Space, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	existing, ok := repo.db.spaces[sp.ID]
	if !ok {
		return space.Space{}, space.ErrNotFound
	}
	existing.CityID = sp.CityID
	existing.CategoryID = sp.CategoryID
	existing.Title = sp.Title
	existing.Slug = sp.Slug
	existing.Description = sp.Description
	existing.Address = sp.Address
	existing.AreaSqm = sp.AreaSqm
	existing.MaxCapacity = sp.MaxCapacity
	existing.IsActive = sp.IsActive
	existing.IsFeatured = sp.IsFeatured
	existing.UpdatedAt = sp.UpdatedAt
	return repo.denormalize(*existing), nil
}

func (repo *spaceRepository) IncrementSpaceViews(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sp, ok := repo.db.spaces[id]; ok {
		sp.ViewsCount++
	}
	return nil
}

func (repo *spaceRepository) DeleteSpacesByID(ctx context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.spaces[id]; ok {
			delete(repo.db.spaces, id)
			n++
		}
	}
	return n, nil
}

func (repo *spaceRepository) QueryCategories(ctx context.Context) ([]space.Category, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cats := make([]space.Category, 0, len(repo.db.categories))
	for _, c := range repo.db.categories {
		cats = append(cats, *c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *spaceRepository) QueryCities(ctx context.Context) ([]space.City, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cities := make([]space.City, 0, len(repo.db.cities))
	for _, c := range repo.db.cities {
		cities = append(cities, *c)
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })
	return cities, nil
}

func (repo *spaceRepository) QueryPricingPeriods(ctx context.Context) ([]space.PricingPeriod, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	periods := make([]space.PricingPeriod, 0, len(repo.db.periods))
	for _, p := range repo.db.periods {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].SortOrder < periods[j].SortOrder })
	return periods, nil
}

func (repo *spaceRepository) GetPricingPeriod(ctx context.Context, id string) (space.PricingPeriod, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.periods[id]; ok {
		return *p, nil
	}
	return space.PricingPeriod{}, space.ErrNotFound
}

func (repo *spaceRepository) GetPrice(ctx context.Context, spaceID, periodID string) (space.Price, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sp, ok := repo.db.spaces[spaceID]
	if !ok {
		return space.Price{}, space.ErrPriceNotFound
	}
	for _, p := range sp.Prices {
		if p.PeriodID == periodID && (p.IsActive == nil || *p.IsActive) {
			return p, nil
		}
	}
	return space.Price{}, space.ErrPriceNotFound
}
