package favorites

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}

type testButton struct {
	mu       sync.Mutex
	spaceID  string
	active   bool
	disabled bool
	pressed  bool
}

func (b *testButton) SpaceID() string { return b.spaceID }

func (b *testButton) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *testButton) SetActive(active bool) {
	b.mu.Lock()
	b.active = active
	b.mu.Unlock()
}

func (b *testButton) SetDisabled(disabled bool) {
	b.mu.Lock()
	b.disabled = disabled
	b.mu.Unlock()
}

func (b *testButton) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

func (b *testButton) SetPressed(pressed bool) {
	b.mu.Lock()
	b.pressed = pressed
	b.mu.Unlock()
}

func (b *testButton) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressed
}

type testNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func (n *testNotifier) Notify(notification Notification) {
	n.mu.Lock()
	n.notifications = append(n.notifications, notification)
	n.mu.Unlock()
}

func (n *testNotifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notifications...)
}

type testListView struct {
	mu       sync.Mutex
	cards    map[string]bool
	reloaded bool
}

func newTestListView(spaceIDs ...string) *testListView {
	cards := make(map[string]bool, len(spaceIDs))
	for _, id := range spaceIDs {
		cards[id] = true
	}
	return &testListView{cards: cards}
}

func (v *testListView) RemoveCard(spaceID string) {
	v.mu.Lock()
	delete(v.cards, spaceID)
	v.mu.Unlock()
}

func (v *testListView) CardCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cards)
}

func (v *testListView) Reload() {
	v.mu.Lock()
	v.reloaded = true
	v.mu.Unlock()
}

func (v *testListView) Reloaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reloaded
}

type staticTokenSource string

func (s staticTokenSource) CSRFToken() (string, bool) { return string(s), s != "" }

// toggleServer counts requests and records the last one seen.
type toggleServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests int
	lastReq  *http.Request

	handler http.HandlerFunc
}

func newToggleServer(t *testing.T, handler http.HandlerFunc) *toggleServer {
	t.Helper()

	srv := &toggleServer{handler: handler}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		srv.requests++
		srv.lastReq = r.Clone(r.Context())
		srv.mu.Unlock()
		srv.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *toggleServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *toggleServer) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

func toggleOK(status string, count int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":          status,
			"message":         "ok",
			"favorites_count": count,
		})
	}
}

type clientFixture struct {
	client   *Client
	notifier *testNotifier
	server   *toggleServer
}

func newClientFixture(t *testing.T, handler http.HandlerFunc, opts func(*ClientDeps)) *clientFixture {
	t.Helper()

	srv := newToggleServer(t, handler)
	notifier := &testNotifier{}
	deps := ClientDeps{
		BaseURL:      srv.URL,
		Logger:       testLogger{},
		TokenSources: []TokenSource{staticTokenSource("tok123")},
		Notifier:     notifier,
	}
	if opts != nil {
		opts(&deps)
	}
	client, err := NewClient(deps)
	require.NoError(t, err)
	return &clientFixture{client: client, notifier: notifier, server: srv}
}

func TestResolveTokenPrecedence(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse("http://interior.test")
	require.NoError(t, err)

	cookieSrc := &CookieTokenSource{Jar: jar, URL: base}
	formSrc := &FormFieldTokenSource{}
	metaSrc := &MetaTagTokenSource{}
	sources := []TokenSource{cookieSrc, formSrc, metaSrc}

	// nothing available
	_, ok := ResolveToken(sources...)
	assert.False(t, ok)

	// meta tag only
	metaSrc.SetToken("from-meta")
	token, ok := ResolveToken(sources...)
	require.True(t, ok)
	assert.Equal(t, "from-meta", token)

	// form field beats meta tag
	formSrc.SetToken("from-form")
	token, ok = ResolveToken(sources...)
	require.True(t, ok)
	assert.Equal(t, "from-form", token)

	// cookie beats both
	jar.SetCookies(base, []*http.Cookie{{Name: TokenCookieName, Value: "from-cookie"}})
	token, ok = ResolveToken(sources...)
	require.True(t, ok)
	assert.Equal(t, "from-cookie", token)
}

func TestToggleRequestShape(t *testing.T) {
	fix := newClientFixture(t, toggleOK("added", 1), nil)
	btn := &testButton{spaceID: "space1"}
	fix.client.Registry().Bind(btn)

	require.NoError(t, fix.client.Toggle(btn))

	require.Equal(t, 1, fix.server.Requests(), "exactly one request")
	req := fix.server.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/spaces/space1/favorite/", req.URL.Path)
	assert.Equal(t, "tok123", req.Header.Get("X-CSRFToken"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "XMLHttpRequest", req.Header.Get("X-Requested-With"))
}

func TestToggleSendsCookies(t *testing.T) {
	fix := newClientFixture(t, toggleOK("added", 1), nil)

	base, err := url.Parse(fix.server.URL)
	require.NoError(t, err)
	fix.client.Jar().SetCookies(base, []*http.Cookie{{Name: "sessionid", Value: "sess42"}})

	btn := &testButton{spaceID: "space1"}
	require.NoError(t, fix.client.Toggle(btn))

	cookie, err := fix.server.LastRequest().Cookie("sessionid")
	require.NoError(t, err)
	assert.Equal(t, "sess42", cookie.Value)
}

func TestToggleMissingSpaceID(t *testing.T) {
	fix := newClientFixture(t, toggleOK("added", 1), nil)
	btn := &testButton{}

	require.NoError(t, fix.client.Toggle(btn))

	assert.Zero(t, fix.server.Requests(), "no request is made")
	assert.Empty(t, fix.notifier.All(), "silent abort, no notification")
	assert.False(t, btn.Disabled())
}

func TestToggleMissingToken(t *testing.T) {
	fix := newClientFixture(t, toggleOK("added", 1), func(deps *ClientDeps) {
		deps.TokenSources = nil
	})
	btn := &testButton{spaceID: "space1"}

	err := fix.client.Toggle(btn)
	assert.Equal(t, ErrMissingToken, err)

	assert.Zero(t, fix.server.Requests(), "no request is made")
	notifications := fix.notifier.All()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelWarning, notifications[0].Level)
	assert.False(t, btn.Disabled(), "button released")
	assert.False(t, btn.Pressed())
}

func TestToggleSuccessFansOut(t *testing.T) {
	fix := newClientFixture(t, toggleOK("added", 1), nil)

	// three buttons for the same space, one for another
	btn1 := &testButton{spaceID: "space1"}
	btn2 := &testButton{spaceID: "space1"}
	btn3 := &testButton{spaceID: "space1"}
	other := &testButton{spaceID: "space2"}
	for _, btn := range []*testButton{btn1, btn2, btn3, other} {
		fix.client.Registry().Bind(btn)
	}

	require.NoError(t, fix.client.Toggle(btn1))

	for _, btn := range []*testButton{btn1, btn2, btn3} {
		assert.True(t, btn.Active(), "every button for the space is updated")
	}
	assert.False(t, other.Active(), "other spaces untouched")

	notifications := fix.notifier.All()
	require.Len(t, notifications, 1, "exactly one notification")
	assert.Equal(t, LevelSuccess, notifications[0].Level)
	assert.Equal(t, "ok", notifications[0].Message)

	assert.False(t, btn1.Disabled(), "button released after flight")
	assert.False(t, btn1.Pressed())
}

func TestToggleResultShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]interface{}
		wantActive bool
		wantErr    bool
	}{
		{"status added", map[string]interface{}{"status": "added"}, true, false},
		{"status removed", map[string]interface{}{"status": "removed"}, false, false},
		{"is_favorite true", map[string]interface{}{"is_favorite": true}, true, false},
		{"is_favorite false", map[string]interface{}{"is_favorite": false}, false, false},
		{"status wins over flag", map[string]interface{}{"status": "added", "is_favorite": false}, true, false},
		{"neither", map[string]interface{}{"message": "hmm"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.body)
			}, nil)
			btn := &testButton{spaceID: "space1", active: !tt.wantActive}
			fix.client.Registry().Bind(btn)

			err := fix.client.Toggle(btn)
			if tt.wantErr {
				assert.Equal(t, ErrToggleFailed, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, btn.Active())
		})
	}
}

func TestToggleForbidden(t *testing.T) {
	fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, nil)
	btn := &testButton{spaceID: "space1"}
	fix.client.Registry().Bind(btn)

	err := fix.client.Toggle(btn)
	assert.Equal(t, ErrAuthRequired, err)

	assert.False(t, btn.Active(), "state unchanged")
	notifications := fix.notifier.All()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelWarning, notifications[0].Level)
	assert.Contains(t, notifications[0].Message, "sign in")
	assert.False(t, btn.Disabled())
}

func TestToggleServerError(t *testing.T) {
	fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)
	btn := &testButton{spaceID: "space1"}
	fix.client.Registry().Bind(btn)

	err := fix.client.Toggle(btn)
	assert.Equal(t, ErrToggleFailed, err)

	assert.Equal(t, 1, fix.server.Requests(), "no retries")
	assert.False(t, btn.Active(), "state unchanged")
	notifications := fix.notifier.All()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelError, notifications[0].Level)
	assert.False(t, btn.Disabled())
}

func TestToggleTimeout(t *testing.T) {
	released := make(chan struct{})
	fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-released
	}, func(deps *ClientDeps) {
		deps.HTTPClient = &http.Client{Timeout: 50 * time.Millisecond}
	})
	defer close(released)

	btn := &testButton{spaceID: "space1"}
	err := fix.client.Toggle(btn)
	assert.Equal(t, ErrToggleFailed, err, "timeout surfaces as a generic failure")

	notifications := fix.notifier.All()
	require.Len(t, notifications, 1)
	assert.Equal(t, LevelError, notifications[0].Level)
	assert.False(t, btn.Disabled(), "button released after timeout")
}

func TestToggleDisablesDuringFlight(t *testing.T) {
	btn := &testButton{spaceID: "space1"}

	inFlight := make(chan bool, 1)
	fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		inFlight <- btn.Disabled() && btn.Pressed()
		toggleOK("added", 1)(w, r)
	}, nil)

	require.NoError(t, fix.client.Toggle(btn))
	assert.True(t, <-inFlight, "button disabled and pressed while the request is in flight")
	assert.False(t, btn.Disabled())
	assert.False(t, btn.Pressed())
}

func TestToggleSingleFlightPerButton(t *testing.T) {
	release := make(chan struct{})
	fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		toggleOK("added", 1)(w, r)
	}, nil)
	btn := &testButton{spaceID: "space1"}

	done := make(chan error, 1)
	go func() { done <- fix.client.Toggle(btn) }()

	// wait for the first toggle to hit the server
	require.Eventually(t, func() bool { return fix.server.Requests() == 1 },
		time.Second, 5*time.Millisecond)

	// a second toggle on the same in-flight button is dropped
	require.NoError(t, fix.client.Toggle(btn))
	assert.Equal(t, 1, fix.server.Requests())

	close(release)
	require.NoError(t, <-done)

	// and it works again once released
	require.NoError(t, fix.client.Toggle(btn))
	assert.Equal(t, 2, fix.server.Requests())
}

func TestToggleTwiceRestoresState(t *testing.T) {
	var favored bool
	var mu sync.Mutex
	fix := newClientFixture(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		favored = !favored
		status := "removed"
		if favored {
			status = "added"
		}
		mu.Unlock()
		toggleOK(status, 1)(w, r)
	}, nil)

	btn := &testButton{spaceID: "space1"}
	fix.client.Registry().Bind(btn)

	require.NoError(t, fix.client.Toggle(btn))
	assert.True(t, btn.Active())
	require.NoError(t, fix.client.Toggle(btn))
	assert.False(t, btn.Active(), "toggling twice restores the initial state")
}

func TestToggleListView(t *testing.T) {
	t.Run("removed card is dropped", func(t *testing.T) {
		view := newTestListView("space1", "space2")
		fix := newClientFixture(t, toggleOK("removed", 1), func(deps *ClientDeps) {
			deps.ListView = view
		})
		btn := &testButton{spaceID: "space1", active: true}
		fix.client.Registry().Bind(btn)

		require.NoError(t, fix.client.Toggle(btn))
		assert.Equal(t, 1, view.CardCount())
		assert.False(t, view.Reloaded(), "non-empty listing is not reloaded")
	})

	t.Run("emptied listing reloads", func(t *testing.T) {
		view := newTestListView("space1")
		fix := newClientFixture(t, toggleOK("removed", 0), func(deps *ClientDeps) {
			deps.ListView = view
		})
		btn := &testButton{spaceID: "space1", active: true}
		fix.client.Registry().Bind(btn)

		require.NoError(t, fix.client.Toggle(btn))
		assert.Zero(t, view.CardCount())
		assert.True(t, view.Reloaded())
	})

	t.Run("added leaves the listing alone", func(t *testing.T) {
		view := newTestListView("space1")
		fix := newClientFixture(t, toggleOK("added", 2), func(deps *ClientDeps) {
			deps.ListView = view
		})
		btn := &testButton{spaceID: "space1"}

		require.NoError(t, fix.client.Toggle(btn))
		assert.Equal(t, 1, view.CardCount())
		assert.False(t, view.Reloaded())
	})
}

func TestRegistryBind(t *testing.T) {
	reg := NewRegistry()
	btn := &testButton{spaceID: "space1"}

	reg.Bind(btn)
	reg.Bind(btn) // idempotent
	assert.Len(t, reg.Buttons("space1"), 1)

	reg.Bind(&testButton{}) // no space id, ignored
	assert.Empty(t, reg.Buttons(""))

	reg.Unbind(btn)
	assert.Empty(t, reg.Buttons("space1"))
}

func TestCenter(t *testing.T) {
	t.Run("newest replaces current", func(t *testing.T) {
		center := &Center{DismissAfter: time.Minute}

		center.Notify(Notification{Level: LevelSuccess, Message: "first"})
		center.Notify(Notification{Level: LevelError, Message: "second"})

		current := center.Current()
		require.NotNil(t, current)
		assert.Equal(t, "second", current.Message, "at most one notification is visible")
	})

	t.Run("auto dismiss", func(t *testing.T) {
		center := &Center{DismissAfter: 20 * time.Millisecond}
		center.Notify(Notification{Message: "soon gone"})
		require.NotNil(t, center.Current())

		assert.Eventually(t, func() bool { return center.Current() == nil },
			time.Second, 5*time.Millisecond)
	})

	t.Run("manual dismiss", func(t *testing.T) {
		center := &Center{DismissAfter: time.Minute}
		var mu sync.Mutex
		var changes []string
		center.OnChange = func(n *Notification) {
			mu.Lock()
			defer mu.Unlock()
			if n == nil {
				changes = append(changes, "dismissed")
			} else {
				changes = append(changes, fmt.Sprintf("%s: %s", n.Level, n.Message))
			}
		}

		center.Notify(Notification{Level: LevelWarning, Message: "heads up"})
		center.Dismiss()
		assert.Nil(t, center.Current())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"warning: heads up", "dismissed"}, changes)
	})
}
