package goIdentity

import "context"

type redirectURIContextKey struct{}

// WithRedirectURI overrides Init.RedirectURI for the Login, Logout and
// Register calls made with ctx.
func WithRedirectURI(ctx context.Context, uri string) context.Context {
	return context.WithValue(ctx, redirectURIContextKey{}, uri)
}

func redirectURIFromContext(ctx context.Context, fallback string) string {
	if ctx == nil {
		return fallback
	}
	uri, _ := ctx.Value(redirectURIContextKey{}).(string)
	if uri == "" {
		return fallback
	}
	return uri
}
