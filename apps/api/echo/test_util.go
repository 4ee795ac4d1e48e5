package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/favorite"
	"github.com/Honeysuckle52/interior/core/review"
	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
	appfs "github.com/Honeysuckle52/interior/fs"
	emailsvc "github.com/Honeysuckle52/interior/services/email"
	inmemdb "github.com/Honeysuckle52/interior/storage/database/inmem"
)

const testCSRFToken = "csrf-test-token"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

// testLogger drops everything; handler tests assert on responses.
type testLogger struct{}

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}

type testApp struct {
	server *Server
	conf   *core.Config
	db     *inmemdb.DB

	usrSvc     user.Service
	spaceSvc   space.Service
	bookingSvc booking.Service
	reviewSvc  review.Service
	favSvc     favorite.Service

	city     space.City
	category space.Category
}

func initApp(t *testing.T) *testApp {
	conf := &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Interior",
		SecretKey:        []byte("secret"),
		DefaultFromEmail: mail.Address{Name: "Interior", Address: "noreply@localhost"},

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		EmailVerificationTimeout:  3 * 24 * time.Hour,
		BookingPrepaymentPercent:  30,
		BookingCancellationWindow: 24 * time.Hour,

		Server: core.ServerConfig{
			SessionExpirationDelta: 10 * time.Minute,
			SessionCookie:          "sessionid",
			CSRFCookie:             "csrftoken",
		},
	}

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
	spaceSvc := space.NewService(inmemdb.NewSpaceRepository(db))
	bookingSvc := booking.NewService(inmemdb.NewBookingRepository(db), spaceSvc, usrSvc, mailSvc, conf)
	reviewSvc := review.NewService(inmemdb.NewReviewRepository(db), bookingSvc)
	favSvc := favorite.NewService(inmemdb.NewFavoriteRepository(db), spaceSvc)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, conf, testLogger{})
	user.LoadCommonPasswords(appfs.FS, testLogger{})

	server := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      testLogger{},
		UserSvc:     usrSvc,
		SpaceSvc:    spaceSvc,
		BookingSvc:  bookingSvc,
		ReviewSvc:   reviewSvc,
		FavoriteSvc: favSvc,
		Validate:    validate,
		Translator:  translator,
	})

	region := db.AddRegion(space.Region{Name: "Central", Code: "ce"})
	active := true
	city := db.AddCity(space.City{Name: "Metropolis", RegionID: region.ID, IsActive: &active})
	category := db.AddCategory(space.Category{Name: "Loft", Slug: "loft", IsActive: &active})

	return &testApp{
		server:     server,
		conf:       conf,
		db:         db,
		usrSvc:     usrSvc,
		spaceSvc:   spaceSvc,
		bookingSvc: bookingSvc,
		reviewSvc:  reviewSvc,
		favSvc:     favSvc,
		city:       city,
		category:   category,
	}
}

func (app *testApp) createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	t.Helper()
	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
		Roles:    roles,
	}
	usr.SetActive(isActive)
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := inmemdb.NewUserRepository(app.db).CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) createSpace(t *testing.T, owner user.User, title string, featured bool) space.Space {
	t.Helper()
	active := true
	now := time.Now().UTC()
	sp, err := inmemdb.NewSpaceRepository(app.db).CreateSpace(context.Background(), space.Space{
		Title:       title,
		Slug:        space.Slugify(title),
		Address:     "12 Main St",
		CityID:      app.city.ID,
		CategoryID:  app.category.ID,
		AreaSqm:     decimal.NewFromInt(80),
		MaxCapacity: 10,
		Description: "test space",
		OwnerID:     owner.ID,
		IsActive:    &active,
		IsFeatured:  featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateSpace() failed: %v", err)
	}

	periods, err := app.spaceSvc.PricingPeriods()
	if err != nil {
		t.Fatalf("PricingPeriods() failed: %v", err)
	}
	for _, p := range periods {
		if p.Name != "hour" && p.Name != "day" {
			continue
		}
		price := decimal.NewFromInt(25)
		if p.Name == "day" {
			price = decimal.NewFromInt(180)
		}
		if _, err := app.db.AddSpacePrice(space.Price{
			SpaceID:  sp.ID,
			PeriodID: p.ID,
			Price:    price,
			IsActive: &active,
		}); err != nil {
			t.Fatalf("AddSpacePrice() failed: %v", err)
		}
	}

	sp, err = app.spaceSvc.GetByID(sp.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	return sp
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newSessionRequest builds a browser-style request: session cookie auth
// and the double-submit CSRF pair the widget sends.
func newSessionRequest(conf *core.Config, method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: conf.Server.SessionCookie, Value: token})
	}
	req.AddCookie(&http.Cookie{Name: conf.Server.CSRFCookie, Value: testCSRFToken})
	req.Header.Set(headerCSRFToken, testCSRFToken)
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
