package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/space"
)

func Test_spaceApi_query(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	loft := app.createSpace(t, owner, "Sunlit Loft on Main", true)
	office := app.createSpace(t, owner, "Downtown Office Suite", false)
	empty := marchallList(t)

	periods, err := app.spaceSvc.PricingPeriods()
	if err != nil {
		t.Fatalf("PricingPeriods() failed: %v", err)
	}

	tests := []httpTest{
		{name: "get all", path: "/v1/spaces", wantData: marchallList(t, loft, office)},
		{name: "search (unknown)", path: "/v1/spaces?search=lol", wantData: empty},
		{name: "search=loft", path: "/v1/spaces?search=LOFT", wantData: marchallList(t, loft)},
		{name: "city filter", path: "/v1/spaces?city=" + app.city.ID, wantData: marchallList(t, loft, office)},
		{name: "city filter (unknown)", path: "/v1/spaces?city=lol", wantData: empty},
		{name: "max_price excludes all", path: "/v1/spaces?max_price=1", wantData: empty},
		{name: "featured", path: "/v1/spaces/featured", wantData: marchallList(t, loft)},
		{name: "categories", path: "/v1/spaces/categories", wantData: marchallList(t, app.category)},
		{name: "cities", path: "/v1/spaces/cities", wantData: marchallList(t, app.city)},
		{name: "pricing periods", path: "/v1/spaces/pricing-periods", wantData: marchallObj(t, periods)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.wantCode = http.StatusOK

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_spaceApi_retrieve(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	sp := app.createSpace(t, owner, "Riverside Photo Studio", false)

	viewed := sp
	viewed.ViewsCount = 1

	tests := []httpTest{
		{name: "unknown id", path: "/v1/spaces/lol", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "by id counts a visit", path: "/v1/spaces/" + sp.ID, wantCode: http.StatusOK,
			wantData: marchallObj(t, viewed)},
		{name: "by slug", path: "/v1/spaces/slug/" + sp.Slug, wantCode: http.StatusOK,
			wantData: marchallObj(t, viewed)},
		{name: "unknown slug", path: "/v1/spaces/slug/lol", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_spaceApi_availability(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	tenant := app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "", nil, true)
	sp := app.createSpace(t, owner, "Lakeside Conference Hall", false)

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	if _, err := app.bookingSvc.Create(booking.NewBooking{
		SpaceID:       sp.ID,
		PeriodID:      periodID(t, app, "hour"),
		StartDatetime: start,
		PeriodsCount:  2,
	}, tenant); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	path := "/v1/spaces/" + sp.ID + "/availability"
	window := func(start, end time.Time) string {
		return path + "?start=" + start.Format(time.RFC3339) + "&end=" + end.Format(time.RFC3339)
	}

	tests := []httpTest{
		{name: "bad start", path: path + "?start=lol&end=lol", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start":"invalid datetime, expected RFC3339"}`)},
		{name: "end not after start", extra: "endBeforeStart", wantCode: http.StatusBadRequest},
		{name: "booked window", path: window(start, start.Add(time.Hour)), wantCode: http.StatusOK,
			wantData: []byte(`{"available":false}`)},
		{name: "overlapping window", path: window(start.Add(time.Hour), start.Add(3*time.Hour)), wantCode: http.StatusOK,
			wantData: []byte(`{"available":false}`)},
		{name: "free window", path: window(start.Add(2*time.Hour), start.Add(3*time.Hour)), wantCode: http.StatusOK,
			wantData: []byte(`{"available":true}`)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			if tt.extra == "endBeforeStart" {
				tt.path = window(start, start)
				tt.wantData = []byte(`{"end":"must be after start"}`)
			}
			req, rec := newRequest(tt.method, tt.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_spaceApi_quote(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	sp := app.createSpace(t, owner, "Sunlit Loft on Main", false)
	hourID := periodID(t, app, "hour")

	path := "/v1/spaces/" + sp.ID + "/quote"
	tests := []httpTest{
		{name: "missing params", path: path, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"period":"this field is required","count":"this field is required"}`)},
		{name: "unknown period", path: path + "?period=lol&count=2", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "unknown space", path: "/v1/spaces/lol/quote?period=" + hourID + "&count=2", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "ok", path: path + "?period=" + hourID + "&count=3", wantCode: http.StatusOK,
			wantData: marchallObj(t, booking.Quote{
				PricePerPeriod: decimal.NewFromInt(25),
				Total:          decimal.NewFromInt(75),
				Prepayment:     decimal.RequireFromString("22.5"),
				Hours:          3,
				PeriodName:     "hour",
			})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_spaceApi_createUpdate(t *testing.T) {
	app := initApp(t)

	admin := app.createUser(t, "Admin", "admin", "admin@test.ru", "", []string{"admin"}, true)
	usr := app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "", nil, true)
	sp := app.createSpace(t, admin, "Downtown Office Suite", false)

	newSpace := marchallObj(t, space.NewSpace{
		Title:       "Cozy Atelier",
		Address:     "5 Art Lane",
		CityID:      app.city.ID,
		CategoryID:  app.category.ID,
		AreaSqm:     decimal.NewFromInt(45),
		MaxCapacity: 6,
		Description: "A cozy atelier.",
	})

	t.Run("create requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/spaces", getToken(t, usr), newSpace)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/spaces", getToken(t, admin), newSpace)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		created, err := app.spaceSvc.GetBySlug("cozy-atelier")
		if err != nil {
			t.Fatalf("GetBySlug() failed: %v", err)
		}
		if created.OwnerID != admin.ID {
			t.Errorf("created.OwnerID = %v; want %v", created.OwnerID, admin.ID)
		}
		if created.IsActive == nil || !*created.IsActive {
			t.Error("new space should be active")
		}
	})

	t.Run("update retitles and reslugs", func(t *testing.T) {
		featured := true
		body := marchallObj(t, UpdateSpaceRequest{Title: "Skyline Office Suite", IsFeatured: &featured})
		req, rec := newAuthRequest(http.MethodPut, "/v1/spaces/"+sp.ID, getToken(t, admin), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		updated, err := app.spaceSvc.GetByID(sp.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if updated.Slug != "skyline-office-suite" {
			t.Errorf("updated.Slug = %v; want skyline-office-suite", updated.Slug)
		}
		if !updated.IsFeatured {
			t.Error("space should be featured")
		}
	})
}

func periodID(t *testing.T, app *testApp, name string) string {
	t.Helper()
	periods, err := app.spaceSvc.PricingPeriods()
	if err != nil {
		t.Fatalf("PricingPeriods() failed: %v", err)
	}
	for _, p := range periods {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("pricing period %q not found", name)
	return ""
}
