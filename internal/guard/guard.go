package guard

import (
	"context"
	"errors"
	"time"

	"github.com/grpweb/grpweb/internal/session"
	"go.uber.org/zap"
)

// Route names a view of the console.
type Route string

const (
	RouteLogin     Route = "login"
	RouteDashboard Route = "dashboard"
	RouteMessages  Route = "messages"
	RoutePositions Route = "positions"
)

var (
	// ErrRedirected reports that the guard sent the user to the login view.
	// Callers render nothing and show no error.
	ErrRedirected = errors.New("guard: redirected to login")

	errMissingStore     = errors.New("guard: session store required")
	errMissingNavigator = errors.New("guard: navigator required")
)

// Navigator switches the active view.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route Route)

func (f NavigatorFunc) Navigate(route Route) {
	f(route)
}

// Admission is the result of a successful guard check.
type Admission struct {
	Token  string
	Claims session.Claims
}

// DisplayName returns the name shown in the welcome banner.
func (a Admission) DisplayName() string {
	return a.Claims.DisplayName()
}

// Config bundles the guard's collaborators.
type Config struct {
	Store     session.Store
	Navigator Navigator
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Guard gates protected views on the presence and expiry of the session token.
type Guard struct {
	store     session.Store
	navigator Navigator
	clock     func() time.Time
	logger    *zap.Logger
}

// New constructs a Guard with validated configuration.
func New(cfg Config) (*Guard, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Navigator == nil {
		return nil, errMissingNavigator
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:     cfg.Store,
		navigator: cfg.Navigator,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Admit runs once per view mount. Without a token it redirects to login; with
// an undecodable or expired token it also clears the session first.
func (g *Guard) Admit(ctx context.Context) (Admission, error) {
	token, ok, err := g.store.Token(ctx)
	if err != nil {
		g.logger.Warn("session token unreadable", zap.Error(err))
		g.RedirectToLogin(ctx)
		return Admission{}, ErrRedirected
	}
	if !ok {
		g.logger.Debug("no session token, redirecting to login")
		g.navigator.Navigate(RouteLogin)
		return Admission{}, ErrRedirected
	}

	claims, err := session.Decode(token)
	if err != nil {
		g.logger.Info("session token invalid, redirecting", zap.Error(err))
		g.RedirectToLogin(ctx)
		return Admission{}, ErrRedirected
	}
	if claims.Expired(g.clock()) {
		g.logger.Info("session token expired, redirecting",
			zap.Time("expires_at", claims.ExpiresAt))
		g.RedirectToLogin(ctx)
		return Admission{}, ErrRedirected
	}

	return Admission{Token: token, Claims: claims}, nil
}

// RedirectToLogin clears the session and navigates to the login view. It is
// the single path for "session invalid", whether detected locally or by a 401.
func (g *Guard) RedirectToLogin(ctx context.Context) {
	if err := g.store.Logout(ctx); err != nil {
		g.logger.Error("failed to clear session", zap.Error(err))
	}
	g.navigator.Navigate(RouteLogin)
}

// Logout is the user-initiated variant of RedirectToLogin.
func (g *Guard) Logout(ctx context.Context) error {
	if err := g.store.Logout(ctx); err != nil {
		return err
	}
	g.navigator.Navigate(RouteLogin)
	return nil
}
