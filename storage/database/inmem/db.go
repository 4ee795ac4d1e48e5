package inmemdb

import (
	"sync"

	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/favorite"
	"github.com/Honeysuckle52/interior/core/review"
	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

// DB is a process-local store used in tests and dev mode.
// A single lock guards all tables; repositories read across them.
type DB struct {
	mutex sync.RWMutex

	users map[string]*user.User

	spaces     map[string]*space.Space
	regions    map[string]*space.Region
	cities     map[string]*space.City
	categories map[string]*space.Category
	periods    map[string]*space.PricingPeriod

	bookings        map[string]*booking.Booking
	bookingStatuses map[string]*booking.Status
	transactions    map[string]*booking.Transaction

	reviews map[string]*review.Review

	favorites map[string]*favorite.Favorite // keyed userID + "/" + spaceID
}

func Open() (*DB, error) {
	db := &DB{
		users:           make(map[string]*user.User),
		spaces:          make(map[string]*space.Space),
		regions:         make(map[string]*space.Region),
		cities:          make(map[string]*space.City),
		categories:      make(map[string]*space.Category),
		periods:         make(map[string]*space.PricingPeriod),
		bookings:        make(map[string]*booking.Booking),
		bookingStatuses: make(map[string]*booking.Status),
		transactions:    make(map[string]*booking.Transaction),
		reviews:         make(map[string]*review.Review),
		favorites:       make(map[string]*favorite.Favorite),
	}
	db.seedReferenceData()
	return db, nil
}

// seedReferenceData installs the same reference rows the SQL migrations do.
func (db *DB) seedReferenceData() {
	for _, st := range []booking.Status{
		{Code: booking.StatusPending, Name: "Pending", Color: "warning", SortOrder: 1},
		{Code: booking.StatusConfirmed, Name: "Confirmed", Color: "success", SortOrder: 2},
		{Code: booking.StatusCompleted, Name: "Completed", Color: "secondary", SortOrder: 3},
		{Code: booking.StatusCancelled, Name: "Cancelled", Color: "danger", SortOrder: 4},
	} {
		st := st
		st.ID = newID()
		db.bookingStatuses[st.Code] = &st
	}
	for _, p := range []space.PricingPeriod{
		{Name: "hour", Description: "Per hour", HoursCount: 1, SortOrder: 1},
		{Name: "day", Description: "Per day", HoursCount: 24, SortOrder: 2},
		{Name: "week", Description: "Per week", HoursCount: 168, SortOrder: 3},
		{Name: "month", Description: "Per month", HoursCount: 720, SortOrder: 4},
	} {
		p := p
		p.ID = newID()
		db.periods[p.ID] = &p
	}
}

// AddRegion stores a region reference row, assigning its ID.
func (db *DB) AddRegion(r space.Region) space.Region {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	r.ID = newID()
	db.regions[r.ID] = &r
	return r
}

// AddCity stores a city reference row, assigning its ID.
func (db *DB) AddCity(c space.City) space.City {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	c.ID = newID()
	db.cities[c.ID] = &c
	return c
}

// AddCategory stores a category reference row, assigning its ID.
func (db *DB) AddCategory(c space.Category) space.Category {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	c.ID = newID()
	db.categories[c.ID] = &c
	return c
}
