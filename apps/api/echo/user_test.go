package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/Honeysuckle52/interior/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := initApp(t)

	app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "LePassword", nil, true)
	app.createUser(t, "N Dog", "ndog", "ndog@test.ru", "LePassword", nil, false)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{name: "empty body", method: http.MethodPost, path: "/v1/users/login", body: login("", ""),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"username":"this field is required","password":"this field is required"}`)},
		{name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: login("lol", "lol"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: login("awe", "lol"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "deactivated account", method: http.MethodPost, path: "/v1/users/login", body: login("ndog", "LePassword"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "login with username", method: http.MethodPost, path: "/v1/users/login", body: login("awe", "LePassword"),
			wantCode: http.StatusOK, extra: "wantToken"},
		{name: "login with email", method: http.MethodPost, path: "/v1/users/login", body: login("awe@test.ru", "LePassword"),
			wantCode: http.StatusOK, extra: "wantToken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.extra == "wantToken" {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling LoginResponse: %v", err)
				}
				claims := new(Claims)
				if _, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
					return appJWTConfig.SigningKey, nil
				}); err != nil {
					t.Errorf("invalid token returned: %v", err)
				}
				if claims.Username != "awe" {
					t.Errorf("claims.Username = %v; want awe", claims.Username)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_webLoginLogout(t *testing.T) {
	app := initApp(t)

	app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "LePassword", nil, true)

	t.Run("login sets session cookie", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: "awe", Password: "LePassword"})
		req, rec := newSessionRequest(app.conf, http.MethodPost, "/auth/login", "", body)
		app.server.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "logged in"})}
		checkCodeAndData(t, tt, rec)

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == app.conf.Server.SessionCookie {
				session = c
			}
		}
		if session == nil {
			t.Fatal("session cookie not set")
		}
		if !session.HttpOnly {
			t.Error("session cookie must be HttpOnly")
		}
		if session.Value == "" {
			t.Error("session cookie is empty")
		}
	})

	t.Run("logout clears session cookie", func(t *testing.T) {
		usr, err := app.usrSvc.GetByUsername("awe")
		if err != nil {
			t.Fatalf("GetByUsername() failed: %v", err)
		}
		req, rec := newSessionRequest(app.conf, http.MethodPost, "/auth/logout", getToken(t, usr))
		app.server.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "logged out"})}
		checkCodeAndData(t, tt, rec)

		var session *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == app.conf.Server.SessionCookie {
				session = c
			}
		}
		if session == nil {
			t.Fatal("session cookie not cleared")
		}
		if session.MaxAge != -1 {
			t.Errorf("session cookie MaxAge = %v; want -1", session.MaxAge)
		}
	})

	t.Run("logout requires session", func(t *testing.T) {
		req, rec := newSessionRequest(app.conf, http.MethodPost, "/auth/logout", "")
		app.server.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "authentication required"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_userApi_query(t *testing.T) {
	app := initApp(t)

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	usr1 := app.createUser(t, "User", "awe", "awe@test.ru", "", nil, true)
	usr2 := app.createUser(t, "King", "user02", "king@test.ru", "", nil, true)
	mod := app.createUser(t, "Mod", "mod", "mod@test.ru", "", []string{user.RoleModerator}, true)
	admin := app.createUser(t, "Admin", "admin", "admin@test.ru", "", []string{user.RoleAdmin}, true)
	naughty := app.createUser(t, "N Dog", "ndog", "ndog@test.ru", "", nil, false)
	empty := marchallList(t)

	adminToken := getToken(t, admin)
	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/users", token: getToken(t, usr1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "get all", path: "/v1/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, usr1, usr2, mod, admin, naughty)},
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantCode: http.StatusOK, wantData: empty},
		{name: "search=USE", path: path("USE", nil), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, usr1, usr2)},
		{name: "role=moderator", path: path("", nil, user.RoleModerator), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, mod)},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, naughty)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app := initApp(t)

	app.createUser(t, "Taken", "taken", "taken@test.ru", "", nil, true)

	newUser := func(uname, email, pwd string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "New Guy",
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{name: "username taken", method: http.MethodPost, path: "/v1/users/register",
			body:     newUser("taken", "new@test.ru", "LePassword"),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"username":"a user with this username or email already exists"}`)},
		{name: "email taken", method: http.MethodPost, path: "/v1/users/register",
			body:     newUser("newguy", "taken@test.ru", "LePassword"),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"username":"a user with this username or email already exists"}`)},
		{name: "common password", method: http.MethodPost, path: "/v1/users/register",
			body:     newUser("newguy", "new@test.ru", "password"),
			wantCode: http.StatusBadRequest, extra: "skipData"},
		{name: "ok", method: http.MethodPost, path: "/v1/users/register",
			body:     newUser("newguy", "new@test.ru", "LePassword", user.RoleAdmin), // roles are ignored
			wantCode: http.StatusCreated, extra: "wantPlainUser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)

			switch tt.extra {
			case "skipData":
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
			case "wantPlainUser":
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("unmarshalling User: %v", err)
				}
				if usr.Username != "newguy" {
					t.Errorf("usr.Username = %v; want newguy", usr.Username)
				}
				if len(usr.Roles) != 0 {
					t.Errorf("usr.Roles = %v; self-registration must not grant roles", usr.Roles)
				}
				if usr.IsActive == nil || !*usr.IsActive {
					t.Error("registered user should be active")
				}
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := initApp(t)

	usr := app.createUser(t, "Awe Sohn", "awe", "awe@test.ru", "LePassword", nil, true)

	t.Run("fresh token refreshes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling LoginResponse: %v", err)
		}
		if resp.Token == "" {
			t.Error("empty token returned")
		}
	})

	t.Run("refresh window expired", func(t *testing.T) {
		origIat := time.Now().Add(-(refreshExpirationDelta + time.Minute)).Unix()
		claims := GetUserClaims(usr, origIat)
		token, err := GenerateToken(claims)
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		app.server.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}
		checkCodeAndData(t, tt, rec)
	})
}
