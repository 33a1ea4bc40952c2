package flows

import (
	"context"

	"github.com/MrEthical07/goIdentity/session"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

func (s Service) Handshake(ctx context.Context) EstablishResult {
	return RunEstablish(ctx, s.deps.Establish.Handshake, s.deps.Establish)
}

func (s Service) Login(ctx context.Context) EstablishResult {
	return RunEstablish(ctx, s.deps.Establish.Login, s.deps.Establish)
}

func (s Service) Refresh(ctx context.Context, current *session.Session) RefreshResult {
	return RunRefresh(ctx, current, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, current *session.Session) LogoutResult {
	return RunLogout(ctx, current, s.deps.Logout)
}

func (s Service) Validate(ctx context.Context, tokenStr string) ValidateResult {
	return RunValidate(ctx, tokenStr, s.deps.Validate)
}
