package favorites

import (
	"net/http"
	"net/url"
	"sync"
)

// Default names under which the CSRF token is published by the backend.
const (
	TokenCookieName    = "csrftoken"
	TokenFormFieldName = "csrfmiddlewaretoken"
	TokenMetaTagName   = "csrf-token"
)

// TokenSource yields a CSRF token, reporting whether one is available.
type TokenSource interface {
	CSRFToken() (token string, ok bool)
}

// CookieTokenSource reads the token from the csrftoken cookie in a jar.
type CookieTokenSource struct {
	Jar  http.CookieJar
	URL  *url.URL
	Name string // defaults to TokenCookieName
}

func (s *CookieTokenSource) CSRFToken() (string, bool) {
	if s.Jar == nil || s.URL == nil {
		return "", false
	}
	name := s.Name
	if name == "" {
		name = TokenCookieName
	}
	for _, c := range s.Jar.Cookies(s.URL) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// FormFieldTokenSource serves the token captured from a rendered form's
// csrfmiddlewaretoken hidden field.
type FormFieldTokenSource struct {
	mu    sync.RWMutex
	token string
}

func (s *FormFieldTokenSource) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *FormFieldTokenSource) CSRFToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// MetaTagTokenSource serves the token captured from a page's csrf-token
// meta tag.
type MetaTagTokenSource struct {
	mu    sync.RWMutex
	token string
}

func (s *MetaTagTokenSource) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MetaTagTokenSource) CSRFToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// ResolveToken returns the first token the sources yield, in order.
func ResolveToken(sources ...TokenSource) (string, bool) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if token, ok := src.CSRFToken(); ok {
			return token, true
		}
	}
	return "", false
}
