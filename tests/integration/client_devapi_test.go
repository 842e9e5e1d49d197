package integration_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/grpweb/grpweb/internal/auth"
	"github.com/grpweb/grpweb/internal/catalog"
	"github.com/grpweb/grpweb/internal/console"
	"github.com/grpweb/grpweb/internal/database"
	"github.com/grpweb/grpweb/internal/gateway"
	"github.com/grpweb/grpweb/internal/guard"
	"github.com/grpweb/grpweb/internal/resource"
	"github.com/grpweb/grpweb/internal/server"
	"github.com/grpweb/grpweb/internal/session"
	"github.com/grpweb/grpweb/internal/users"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	signingSecret = "integration-secret"
	loginPath     = "/auth/login"
	adminUsername = "alice"
	adminPassword = "wonderland"
)

type devAPI struct {
	server *httptest.Server
}

func startDevAPI(t *testing.T) devAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	accounts, err := users.NewService(users.ServiceConfig{Database: db, BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("failed to build account service: %v", err)
	}
	if _, err := accounts.EnsureAccount(context.Background(), adminUsername, adminPassword, "admin"); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build catalog service: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte(signingSecret), Issuer: "grpweb-devapi"})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts:     accounts,
		TokenManager: tokens,
		Catalog:      catalogService,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	testServer := httptest.NewServer(handler)
	t.Cleanup(testServer.Close)
	return devAPI{server: testServer}
}

func newGateway(t *testing.T, baseURL string, store session.Store) *gateway.Gateway {
	t.Helper()
	apiGateway, err := gateway.New(gateway.Config{BaseURL: baseURL, Store: store})
	if err != nil {
		t.Fatalf("failed to build gateway: %v", err)
	}
	return apiGateway
}

type routeRecorder struct {
	routes []guard.Route
}

func (r *routeRecorder) Navigate(route guard.Route) {
	r.routes = append(r.routes, route)
}

func TestLoginAndPositionLifecycle(t *testing.T) {
	api := startDevAPI(t)
	ctx := context.Background()
	store := session.NewMemoryStore("")
	apiGateway := newGateway(t, api.server.URL, store)

	if _, err := apiGateway.Login(ctx, loginPath, adminUsername, []byte("wrong")); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, ok, _ := store.Token(ctx); ok {
		t.Fatalf("expected no session after failed login")
	}

	token, err := apiGateway.Login(ctx, loginPath, adminUsername, []byte(adminPassword))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := session.Decode(token)
	if err != nil {
		t.Fatalf("issued token not decodable: %v", err)
	}
	if claims.DisplayName() != adminUsername || claims.SubjectID != "1" || claims.Expired(time.Now()) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	navigator := &routeRecorder{}
	routeGuard, err := guard.New(guard.Config{Store: store, Navigator: navigator})
	if err != nil {
		t.Fatalf("failed to build guard: %v", err)
	}
	if _, err := routeGuard.Admit(ctx); err != nil {
		t.Fatalf("expected admission, got %v", err)
	}

	positions, err := resource.NewController(resource.ControllerConfig[resource.Position]{
		Resource:   resource.Positions,
		Requester:  apiGateway,
		Redirector: routeGuard,
	})
	if err != nil {
		t.Fatalf("failed to build controller: %v", err)
	}

	if err := positions.LoadList(ctx); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
	positions.SetDraft([]string{"PRES", "President"})
	if err := positions.Submit(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	state := positions.Snapshot()
	if len(state.Records) != 1 || *state.Records[0].PositionID != 1 || state.Records[0].PositionCode != "PRES" {
		t.Fatalf("unexpected records after create %+v", state.Records)
	}
	if state.Phase() != resource.PhaseIdle {
		t.Fatalf("expected idle after create, got %s", state.Phase())
	}

	positions.SetDraft([]string{"PRES", "Duplicate"})
	if err := positions.Submit(ctx); err == nil {
		t.Fatalf("expected duplicate code failure")
	}
	if state := positions.Snapshot(); state.Err != "position code already exists" {
		t.Fatalf("unexpected duplicate error %q", state.Err)
	}
	positions.CancelEdit()

	record, ok := positions.Find(1)
	if !ok {
		t.Fatalf("expected record 1 to be listed")
	}
	positions.SelectForEdit(record)
	if err := positions.SetField("position_name", "President of the Board"); err != nil {
		t.Fatalf("set field failed: %v", err)
	}
	if err := positions.Submit(ctx); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if state := positions.Snapshot(); state.Records[0].PositionName != "President of the Board" || state.Editing {
		t.Fatalf("unexpected state after update %+v", state)
	}

	if err := positions.Remove(ctx, 1, resource.ConfirmFunc(func(string) bool { return true })); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if state := positions.Snapshot(); len(state.Records) != 0 {
		t.Fatalf("expected empty list after remove, got %+v", state.Records)
	}
	if len(navigator.routes) != 0 {
		t.Fatalf("expected no redirects, got %v", navigator.routes)
	}
}

func TestRejectedTokenClearsSessionAndRedirects(t *testing.T) {
	api := startDevAPI(t)
	ctx := context.Background()

	foreign, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte("other-secret"), Issuer: "grpweb-devapi"})
	if err != nil {
		t.Fatalf("failed to build foreign issuer: %v", err)
	}
	token, _, err := foreign.IssueToken(ctx, auth.Identity{AccountID: 1, Username: adminUsername})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	store := session.NewMemoryStore(token)
	navigator := &routeRecorder{}
	routeGuard, err := guard.New(guard.Config{Store: store, Navigator: navigator})
	if err != nil {
		t.Fatalf("failed to build guard: %v", err)
	}
	messages, err := resource.NewController(resource.ControllerConfig[resource.Message]{
		Resource:   resource.Messages,
		Requester:  newGateway(t, api.server.URL, store),
		Redirector: routeGuard,
	})
	if err != nil {
		t.Fatalf("failed to build controller: %v", err)
	}

	if err := messages.LoadList(ctx); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, ok, _ := store.Token(ctx); ok {
		t.Fatalf("expected session to be cleared")
	}
	if len(navigator.routes) == 0 || navigator.routes[len(navigator.routes)-1] != guard.RouteLogin {
		t.Fatalf("expected redirect to login, got %v", navigator.routes)
	}
	if state := messages.Snapshot(); state.Err != "" {
		t.Fatalf("expected no error banner, got %q", state.Err)
	}
}

func TestConsoleDashboardAgainstDevAPI(t *testing.T) {
	api := startDevAPI(t)
	ctx := context.Background()
	store := session.NewMemoryStore("")
	apiGateway := newGateway(t, api.server.URL, store)
	if _, err := apiGateway.Login(ctx, loginPath, adminUsername, []byte(adminPassword)); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	var seeded resource.Message
	if err := apiGateway.Do(ctx, "POST", "/messages", resource.Message{MessageCode: "MOTD", MessageContent: "Meeting at noon"}, &seeded); err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}

	var out bytes.Buffer
	app, err := console.New(console.Config{
		In:      strings.NewReader(""),
		Out:     &out,
		Store:   store,
		Gateway: apiGateway,
	})
	if err != nil {
		t.Fatalf("failed to build console: %v", err)
	}

	if err := app.Open(ctx, guard.RouteDashboard); err != nil {
		t.Fatalf("dashboard open failed: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "Welcome, "+adminUsername) {
		t.Fatalf("expected welcome line, got %q", output)
	}
	if !strings.Contains(output, "Meeting at noon") || !strings.Contains(output, "Name: MOTD") {
		t.Fatalf("expected seeded message on dashboard, got %q", output)
	}

	if err := app.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if err := app.Open(ctx, guard.RouteMessages); !errors.Is(err, guard.ErrRedirected) {
		t.Fatalf("expected redirect after logout, got %v", err)
	}
	if app.Route() != guard.RouteLogin {
		t.Fatalf("expected login view, got %s", app.Route())
	}
}
