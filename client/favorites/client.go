package favorites

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/favorite"
)

// DefaultTimeout bounds a toggle request; a timeout surfaces as a generic
// transient failure.
const DefaultTimeout = 10 * time.Second

// User-facing notification messages.
const (
	msgTokenMissing = "Your session has expired, please refresh the page"
	msgSignIn       = "Please sign in to save favorites"
	msgGenericError = "Something went wrong, please try again"
)

var (
	// ErrMissingToken is returned when no CSRF token could be resolved;
	// no request is made.
	ErrMissingToken = errors.New("no csrf token available")
	// ErrAuthRequired is returned when the backend rejects the toggle for
	// an unauthenticated session.
	ErrAuthRequired = errors.New("authentication required")
	// ErrToggleFailed is returned for any other failed toggle; the local
	// state is left unchanged.
	ErrToggleFailed = errors.New("favorite toggle failed")
)

// ListView is the favorites listing a toggle may need to update: removing a
// space removes its card, and an emptied listing is reloaded.
type ListView interface {
	RemoveCard(spaceID string)
	CardCount() int
	Reload()
}

type (
	// Client drives favorite toggles against the backend and keeps every
	// bound Button in sync with the outcome.
	Client struct {
		baseURL  *url.URL
		http     *http.Client
		logger   core.Logger
		sources  []TokenSource
		registry *Registry
		notifier Notifier
		listView ListView

		mu       sync.Mutex
		inflight map[Button]struct{}
	}

	// ClientDeps are the dependencies needed by NewClient. HTTPClient and
	// Registry are optional; a default client carries a cookie jar so the
	// session and csrftoken cookies ride along.
	ClientDeps struct {
		BaseURL      string
		Logger       core.Logger
		TokenSources []TokenSource
		Notifier     Notifier
		HTTPClient   *http.Client
		Registry     *Registry
		// ListView marks the client as driving a favorites listing.
		ListView ListView
	}
)

func NewClient(deps ClientDeps) (*Client, error) {
	base, err := url.Parse(deps.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing base URL")
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "creating cookie jar")
		}
		httpClient = &http.Client{Jar: jar, Timeout: DefaultTimeout}
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = DefaultTimeout
	}

	registry := deps.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	return &Client{
		baseURL:  base,
		http:     httpClient,
		logger:   deps.Logger,
		sources:  deps.TokenSources,
		registry: registry,
		notifier: deps.Notifier,
		listView: deps.ListView,
	}, nil
}

// Registry returns the button registry the client fans outcomes out to.
func (c *Client) Registry() *Registry { return c.registry }

// Jar returns the cookie jar the client's requests ride on.
func (c *Client) Jar() http.CookieJar { return c.http.Jar }

// Toggle flips the favorite state of the button's space. It makes exactly
// one request; there are no retries. The button is disabled for the
// duration and released on every path. On success the new state is fanned
// out to every button bound to the same space and one notification is
// shown; on failure the local state is left unchanged.
func (c *Client) Toggle(btn Button) error {
	spaceID := btn.SpaceID()
	if spaceID == "" {
		c.logger.Warn("favorites: toggle called without a space id")
		return nil
	}

	if !c.acquire(btn) {
		c.logger.Debug(fmt.Sprintf("favorites: toggle already in flight for space %s", spaceID))
		return nil
	}

	btn.SetDisabled(true)
	btn.SetPressed(true)
	defer func() {
		btn.SetPressed(false)
		btn.SetDisabled(false)
		c.release(btn)
	}()

	token, ok := ResolveToken(c.sources...)
	if !ok {
		c.logger.Error("favorites: no csrf token available", ErrMissingToken)
		c.notify(LevelWarning, msgTokenMissing)
		return ErrMissingToken
	}

	res, err := c.postToggle(spaceID, token)
	if err != nil {
		c.logger.Error(fmt.Sprintf("favorites: toggle request failed for space %s", spaceID), err)
		c.notify(LevelError, msgGenericError)
		return ErrToggleFailed
	}

	switch res.StatusCode {
	case http.StatusOK:
		return c.applyResult(spaceID, res)
	case http.StatusForbidden:
		c.notify(LevelWarning, msgSignIn)
		return ErrAuthRequired
	default:
		c.logger.Error(fmt.Sprintf("favorites: toggle returned status %d for space %s", res.StatusCode, spaceID), ErrToggleFailed)
		c.notify(LevelError, msgGenericError)
		return ErrToggleFailed
	}
}

func (c *Client) postToggle(spaceID, token string) (*toggleResponse, error) {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + "/spaces/" + url.PathEscape(spaceID) + "/favorite/"

	req, err := http.NewRequest(http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("X-CSRFToken", token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	out := &toggleResponse{StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out.Result); err != nil {
			return nil, errors.Wrap(err, "decoding response")
		}
	}
	return out, nil
}

type toggleResponse struct {
	StatusCode int
	Result     toggleResult
}

// toggleResult tolerates either the status string, the is_favorite flag,
// or both.
type toggleResult struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	FavoritesCount int    `json:"favorites_count"`
	IsFavorite     *bool  `json:"is_favorite"`
}

func (r toggleResult) active() (bool, bool) {
	switch r.Status {
	case favorite.StatusAdded:
		return true, true
	case favorite.StatusRemoved:
		return false, true
	}
	if r.IsFavorite != nil {
		return *r.IsFavorite, true
	}
	return false, false
}

func (c *Client) applyResult(spaceID string, res *toggleResponse) error {
	active, ok := res.Result.active()
	if !ok {
		c.logger.Error(fmt.Sprintf("favorites: unreadable toggle result for space %s", spaceID), ErrToggleFailed)
		c.notify(LevelError, msgGenericError)
		return ErrToggleFailed
	}

	c.registry.SetActive(spaceID, active)

	msg := res.Result.Message
	if msg == "" {
		msg = "Added to favorites"
		if !active {
			msg = "Removed from favorites"
		}
	}
	c.notify(LevelSuccess, msg)

	if !active && c.listView != nil {
		c.listView.RemoveCard(spaceID)
		if c.listView.CardCount() == 0 {
			c.listView.Reload()
		}
	}
	return nil
}

func (c *Client) notify(level NotificationLevel, msg string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(Notification{Level: level, Message: msg})
}

func (c *Client) acquire(btn Button) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		c.inflight = make(map[Button]struct{})
	}
	if _, busy := c.inflight[btn]; busy {
		return false
	}
	c.inflight[btn] = struct{}{}
	return true
}

func (c *Client) release(btn Button) {
	c.mu.Lock()
	delete(c.inflight, btn)
	c.mu.Unlock()
}
