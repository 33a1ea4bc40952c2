package interceptor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
)

// TokenSource yields an access token valid for at least minValidity.
// *goIdentity.Client implements it.
type TokenSource interface {
	FreshToken(ctx context.Context, minValidity time.Duration) (string, error)
}

// Transport adds a bearer token to every request it forwards to Base.
type Transport struct {
	Source       TokenSource
	Base         http.RoundTripper
	Prefix       string
	ExcludedURLs []string
	MinValidity  time.Duration
}

// New builds a Transport from the client's bearer settings. A nil base uses
// http.DefaultTransport.
func New(source TokenSource, cfg goIdentity.BearerConfig, minValidity time.Duration, base http.RoundTripper) *Transport {
	return &Transport{
		Source:       source,
		Base:         base,
		Prefix:       cfg.Prefix,
		ExcludedURLs: append([]string(nil), cfg.ExcludedURLs...),
		MinValidity:  minValidity,
	}
}

// Client returns an http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Source == nil || t.excluded(req) {
		return base.RoundTrip(req)
	}

	token, err := t.Source.FreshToken(req.Context(), t.MinValidity)
	switch {
	case errors.Is(err, goIdentity.ErrNotAuthenticated), errors.Is(err, goIdentity.ErrNotInitialized):
		return base.RoundTrip(req)
	case err != nil:
		closeBody(req)
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", t.prefix()+" "+token)
	return base.RoundTrip(out)
}

func (t *Transport) excluded(req *http.Request) bool {
	if req.URL == nil {
		return false
	}
	for _, prefix := range t.ExcludedURLs {
		if prefix != "" && strings.HasPrefix(req.URL.Path, prefix) {
			return true
		}
	}
	return false
}

func (t *Transport) prefix() string {
	if t.Prefix == "" {
		return "Bearer"
	}
	return t.Prefix
}

// RoundTrippers must close the body even on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
