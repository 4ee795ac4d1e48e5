package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/user"
)

func Test_bookingApi_create(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	tenant := app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "", nil, true)
	sp := app.createSpace(t, owner, "Sunlit Loft on Main", false)
	hourID := periodID(t, app, "hour")

	token := getToken(t, tenant)
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	newBooking := func(start time.Time, count int) []byte {
		return marchallObj(t, booking.NewBooking{
			SpaceID:       sp.ID,
			PeriodID:      hourID,
			StartDatetime: start,
			PeriodsCount:  count,
			Comment:       "birthday party",
		})
	}

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/bookings", newBooking(start, 2))
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("start in the past", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/bookings", token, newBooking(start.Add(-72*time.Hour), 2))
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"start_datetime":"cannot be in the past"}`)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/bookings", token, newBooking(start, 2))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var bkg booking.Booking
		if err := json.Unmarshal(rec.Body.Bytes(), &bkg); err != nil {
			t.Fatalf("unmarshalling Booking: %v", err)
		}
		if bkg.StatusCode != booking.StatusPending {
			t.Errorf("bkg.StatusCode = %v; want %v", bkg.StatusCode, booking.StatusPending)
		}
		if !bkg.TotalAmount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("bkg.TotalAmount = %v; want 50", bkg.TotalAmount)
		}
		if !bkg.EndDatetime.Equal(start.Add(2 * time.Hour)) {
			t.Errorf("bkg.EndDatetime = %v; want %v", bkg.EndDatetime, start.Add(2*time.Hour))
		}

		// the prepayment transaction is opened alongside
		txs, err := app.bookingSvc.Transactions(bkg.ID)
		if err != nil {
			t.Fatalf("Transactions() failed: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("len(txs) = %v; want 1", len(txs))
		}
		if txs[0].StatusCode != booking.TxPending {
			t.Errorf("txs[0].StatusCode = %v; want %v", txs[0].StatusCode, booking.TxPending)
		}
		if !txs[0].Amount.Equal(decimal.NewFromInt(15)) { // 30% of 50
			t.Errorf("txs[0].Amount = %v; want 15", txs[0].Amount)
		}
	})

	t.Run("window taken", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/bookings", token, newBooking(start.Add(time.Hour), 2))
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest,
			wantData: []byte(`{"start_datetime":"space is not available for the requested time"}`)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_bookingApi_query(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	tenant := app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "", nil, true)
	other := app.createUser(t, "King", "user02", "king@test.ru", "", nil, true)
	mod := app.createUser(t, "Mod", "mod", "mod@test.ru", "", []string{user.RoleModerator}, true)
	sp := app.createSpace(t, owner, "Downtown Office Suite", false)
	hourID := periodID(t, app, "hour")

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	mine, err := app.bookingSvc.Create(booking.NewBooking{
		SpaceID: sp.ID, PeriodID: hourID, StartDatetime: start, PeriodsCount: 1,
	}, tenant)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	theirs, err := app.bookingSvc.Create(booking.NewBooking{
		SpaceID: sp.ID, PeriodID: hourID, StartDatetime: start.Add(3 * time.Hour), PeriodsCount: 1,
	}, other)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	tests := []httpTest{
		{name: "tenant only sees their own", path: "/v1/bookings", token: getToken(t, tenant),
			wantData: marchallList(t, mine)},
		{name: "moderator sees all", path: "/v1/bookings", token: getToken(t, mod),
			wantData: marchallList(t, mine, theirs)},
		{name: "tenant detail", path: "/v1/bookings/" + mine.ID, token: getToken(t, tenant),
			wantData: marchallObj(t, mine)},
		{name: "foreign detail is hidden", path: "/v1/bookings/" + theirs.ID, token: getToken(t, tenant),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "moderator detail", path: "/v1/bookings/" + theirs.ID, token: getToken(t, mod),
			wantData: marchallObj(t, theirs)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_bookingApi_moderation(t *testing.T) {
	app := initApp(t)

	owner := app.createUser(t, "Olya Host", "olya", "olya@test.ru", "", nil, true)
	tenant := app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "", nil, true)
	mod := app.createUser(t, "Mod", "mod", "mod@test.ru", "", []string{user.RoleModerator}, true)
	sp := app.createSpace(t, owner, "Riverside Photo Studio", false)
	hourID := periodID(t, app, "hour")

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	create := func(t *testing.T, offset time.Duration) booking.Booking {
		t.Helper()
		bkg, err := app.bookingSvc.Create(booking.NewBooking{
			SpaceID: sp.ID, PeriodID: hourID, StartDatetime: start.Add(offset), PeriodsCount: 1,
		}, tenant)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		return bkg
	}

	t.Run("confirm requires moderator", func(t *testing.T) {
		bkg := create(t, 0)
		req, rec := newAuthRequest(http.MethodPost, "/v1/bookings/"+bkg.ID+"/confirm", getToken(t, tenant))
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("confirm then complete", func(t *testing.T) {
		bkg := create(t, 2*time.Hour)
		modToken := getToken(t, mod)

		req, rec := newAuthRequest(http.MethodPost, "/v1/bookings/"+bkg.ID+"/confirm", modToken,
			marchallObj(t, ModerationRequest{Comment: "looks good"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("confirm code = %v; body %s", rec.Code, rec.Body.String())
		}
		var confirmed booking.Booking
		if err := json.Unmarshal(rec.Body.Bytes(), &confirmed); err != nil {
			t.Fatalf("unmarshalling Booking: %v", err)
		}
		if confirmed.StatusCode != booking.StatusConfirmed {
			t.Errorf("confirmed.StatusCode = %v; want %v", confirmed.StatusCode, booking.StatusConfirmed)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/bookings/"+bkg.ID+"/complete", modToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("complete code = %v; body %s", rec.Code, rec.Body.String())
		}

		// completed bookings cannot be confirmed again
		req, rec = newAuthRequest(http.MethodPost, "/v1/bookings/"+bkg.ID+"/confirm", modToken)
		app.server.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "booking status change not allowed"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("tenant cancels, prepayment is voided", func(t *testing.T) {
		bkg := create(t, 4*time.Hour)
		req, rec := newAuthRequest(http.MethodPost, "/v1/bookings/"+bkg.ID+"/cancel", getToken(t, tenant),
			marchallObj(t, ModerationRequest{Comment: "plans changed"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel code = %v; body %s", rec.Code, rec.Body.String())
		}
		var cancelled booking.Booking
		if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
			t.Fatalf("unmarshalling Booking: %v", err)
		}
		if cancelled.StatusCode != booking.StatusCancelled {
			t.Errorf("cancelled.StatusCode = %v; want %v", cancelled.StatusCode, booking.StatusCancelled)
		}

		txs, err := app.bookingSvc.Transactions(bkg.ID)
		if err != nil {
			t.Fatalf("Transactions() failed: %v", err)
		}
		if len(txs) != 1 || txs[0].StatusCode != booking.TxCancelled {
			t.Errorf("txs = %+v; want a single cancelled transaction", txs)
		}

		// a cancelled booking frees the calendar
		available, err := app.bookingSvc.CheckAvailability(sp.ID, bkg.StartDatetime, bkg.EndDatetime)
		if err != nil {
			t.Fatalf("CheckAvailability() failed: %v", err)
		}
		if !available {
			t.Error("cancelled booking should free its window")
		}
	})
}
