package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/grpweb/grpweb/internal/gateway"
	"github.com/grpweb/grpweb/internal/guard"
	"github.com/grpweb/grpweb/internal/resource"
	"github.com/grpweb/grpweb/internal/session"
	"github.com/grpweb/grpweb/internal/widgets"
	"go.uber.org/zap"
)

const (
	defaultLoginPath = "/auth/login"
	maxRedirects     = 4

	loginHint      = "Not logged in. Use: login [username] | token <jwt>"
	noTokenDisplay = "Not logged in or token expired..."
)

var (
	// ErrNoScreen reports a form command issued outside the messages or
	// positions view.
	ErrNoScreen = errors.New("console: open messages or positions first")
	// ErrUsage reports malformed command arguments.
	ErrUsage = errors.New("console: invalid arguments")
	// ErrInvalidToken rejects a pasted token that is malformed or expired.
	ErrInvalidToken = errors.New("console: token is invalid or expired")

	errMissingStore   = errors.New("console: session store required")
	errMissingGateway = errors.New("console: gateway required")
)

// Gateway is the API surface the console needs. *gateway.Gateway satisfies it.
type Gateway interface {
	resource.Requester
	Login(ctx context.Context, loginPath, username string, password []byte) (string, error)
}

// Copier places text on the clipboard. *widgets.Copier satisfies it.
type Copier interface {
	Copy(text string) error
}

// Config bundles the console's collaborators.
type Config struct {
	In        io.Reader
	Out       io.Writer
	Store     session.Store
	Gateway   Gateway
	LoginPath string
	Quotes    *widgets.Generator
	Copier    Copier
	Confirmer resource.Confirmer
	Clock     func() time.Time
	Logger    *zap.Logger
}

// App is the interactive client. It owns the active view and implements
// guard.Navigator; navigation requested during a command is applied once the
// command returns.
type App struct {
	reader    *bufio.Reader
	out       io.Writer
	store     session.Store
	gateway   Gateway
	guard     *guard.Guard
	loginPath string
	quotes    *widgets.Generator
	copier    Copier
	confirmer resource.Confirmer
	clock     func() time.Time
	logger    *zap.Logger

	route     guard.Route
	next      guard.Route
	quiet     bool
	admission guard.Admission
	dashboard *resource.Controller[resource.Message]
	active    screen
}

// New constructs an App positioned on the login view.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Gateway == nil {
		return nil, errMissingGateway
	}

	app := &App{
		reader:    bufio.NewReader(orStdin(cfg.In)),
		out:       orStdout(cfg.Out),
		store:     cfg.Store,
		gateway:   cfg.Gateway,
		loginPath: strings.TrimSpace(cfg.LoginPath),
		quotes:    cfg.Quotes,
		copier:    cfg.Copier,
		confirmer: cfg.Confirmer,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		route:     guard.RouteLogin,
	}
	if app.loginPath == "" {
		app.loginPath = defaultLoginPath
	}
	if app.logger == nil {
		app.logger = zap.NewNop()
	}
	if app.clock == nil {
		app.clock = time.Now
	}
	if app.quotes == nil {
		app.quotes = widgets.NewGenerator()
	}
	if app.copier == nil {
		app.copier = widgets.NewCopier(widgets.CopierConfig{Logger: app.logger})
	}
	if app.confirmer == nil {
		app.confirmer = resource.ConfirmFunc(func(prompt string) bool {
			return Ask(app.reader, prompt, app.out)
		})
	}

	routeGuard, err := guard.New(guard.Config{
		Store:     cfg.Store,
		Navigator: app,
		Clock:     app.clock,
		Logger:    app.logger,
	})
	if err != nil {
		return nil, err
	}
	app.guard = routeGuard
	return app, nil
}

// Run mounts the dashboard (or the login view) and serves commands until EOF
// or "exit".
func (a *App) Run(ctx context.Context) error {
	_ = a.Open(ctx, guard.RouteDashboard)
	runREPL(ctx, a, a.reader, a.out)
	a.unmountAll()
	return nil
}

// SetQuiet suppresses view rendering. One-shot commands use it while they
// prepare a form.
func (a *App) SetQuiet(quiet bool) {
	a.quiet = quiet
}

// Navigate records the view to mount once the current command returns.
func (a *App) Navigate(route guard.Route) {
	a.next = route
}

// Route returns the mounted view.
func (a *App) Route() guard.Route {
	return a.route
}

// Open mounts route. It returns guard.ErrRedirected when the guard sent the
// user elsewhere.
func (a *App) Open(ctx context.Context, route guard.Route) error {
	a.Navigate(route)
	a.settle(ctx)
	if a.route != route {
		return guard.ErrRedirected
	}
	return nil
}

func (a *App) Help() {
	fmt.Fprintln(a.out, "Views: dashboard, messages, positions")
	switch {
	case a.route == guard.RouteLogin:
		fmt.Fprintln(a.out, "Commands: login [username], token <jwt>, quote, exit")
	case a.active != nil:
		fmt.Fprintln(a.out, "Commands: list, edit <id>, set [field value], save, delete <id>, cancel, show, logout, exit")
	default:
		fmt.Fprintln(a.out, "Commands: quote, copy, show, logout, exit")
	}
}

// Login exchanges credentials for a session. The username comes from args or
// a prompt; the password is always prompted.
func (a *App) Login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		entered, err := GetSimpleText(a.reader, "Username", a.out)
		if err != nil {
			return err
		}
		username = entered
	}

	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	token, err := a.gateway.Login(ctx, a.loginPath, username, password)
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		fmt.Fprintln(a.out, "Invalid username or password.")
		return err
	case errors.Is(err, gateway.ErrMissingCredentials):
		fmt.Fprintln(a.out, "Username and password are required.")
		return err
	case err != nil:
		fmt.Fprintf(a.out, "Login failed: %v\n", err)
		return err
	}

	a.greet(token)
	return nil
}

// UseToken stores a bearer token obtained elsewhere.
func (a *App) UseToken(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		entered, err := GetSimpleText(a.reader, "Paste bearer token", a.out)
		if err != nil {
			return err
		}
		token = entered
	}

	claims, err := session.Decode(token)
	if err != nil || claims.Expired(a.clock()) {
		fmt.Fprintln(a.out, "Token is invalid or expired.")
		return ErrInvalidToken
	}
	if err := a.store.Save(ctx, strings.TrimSpace(token)); err != nil {
		fmt.Fprintf(a.out, "Could not save session: %v\n", err)
		return err
	}
	a.greet(token)
	return nil
}

// Logout clears the session and shows the login view.
func (a *App) Logout(ctx context.Context) error {
	a.unmountAll()
	if err := a.guard.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Logout failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	a.settle(ctx)
	return nil
}

// WhoAmI prints the identity carried by the session token.
func (a *App) WhoAmI(ctx context.Context) error {
	admission, err := a.guard.Admit(ctx)
	if err != nil {
		a.settle(ctx)
		return err
	}
	claims := admission.Claims
	fmt.Fprintf(a.out, "Username: %s\n", claims.DisplayName())
	if claims.Role != "" {
		fmt.Fprintf(a.out, "Role:     %s\n", claims.Role)
	}
	if claims.SubjectID != "" {
		fmt.Fprintf(a.out, "Subject:  %s\n", claims.SubjectID)
	}
	fmt.Fprintf(a.out, "Expires:  %s (in %s)\n",
		claims.ExpiresAt.Local().Format(time.RFC1123),
		claims.Remaining(a.clock()).Truncate(time.Second))
	return nil
}

// Quote shows a new random quote.
func (a *App) Quote() error {
	a.printQuote(a.quotes.Next())
	return nil
}

// CopyToken copies the session token to the clipboard.
func (a *App) CopyToken(ctx context.Context) error {
	token := a.admission.Token
	if token == "" {
		admission, err := a.guard.Admit(ctx)
		if err != nil {
			a.settle(ctx)
			return err
		}
		token = admission.Token
	}
	if err := a.copier.Copy(token); err != nil {
		fmt.Fprintln(a.out, widgets.CopyFailureMessage)
		return err
	}
	fmt.Fprintln(a.out, "Token Copied!")
	return nil
}

// Refresh reloads the active view.
func (a *App) Refresh(ctx context.Context) error {
	switch {
	case a.active != nil:
		return a.after(ctx, a.active.load(ctx))
	case a.route == guard.RouteDashboard:
		return a.Open(ctx, guard.RouteDashboard)
	default:
		fmt.Fprintln(a.out, loginHint)
		return nil
	}
}

// Edit selects a listed record for editing.
func (a *App) Edit(args []string) error {
	if a.active == nil {
		return a.noScreen()
	}
	id, err := parseID(args)
	if err != nil {
		fmt.Fprintln(a.out, "Usage: edit <id>")
		return err
	}
	if err := a.active.edit(id); err != nil {
		fmt.Fprintf(a.out, "%s.\n", capitalize(err.Error()))
		return err
	}
	a.render()
	return nil
}

// Set updates draft fields. Without arguments every field is prompted in turn
// and blank answers keep the current value.
func (a *App) Set(args []string) error {
	if a.active == nil {
		return a.noScreen()
	}
	switch {
	case len(args) == 0:
		for _, field := range a.active.fields() {
			value, err := GetSimpleText(a.reader, fmt.Sprintf("%s (%s)", field.Label, field.Placeholder), a.out)
			if err != nil {
				return err
			}
			if value == "" {
				continue
			}
			if err := a.active.set(field.Name, value); err != nil {
				return err
			}
		}
	case len(args) == 1:
		fmt.Fprintln(a.out, "Usage: set <field> <value>")
		return ErrUsage
	default:
		if err := a.active.set(args[0], strings.Join(args[1:], " ")); err != nil {
			fmt.Fprintf(a.out, "Unknown field %q.\n", args[0])
			return err
		}
	}
	a.render()
	return nil
}

// Save submits the draft.
func (a *App) Save(ctx context.Context) error {
	if a.active == nil {
		return a.noScreen()
	}
	err := a.active.save(ctx)
	var validationErr *resource.ValidationError
	if errors.As(err, &validationErr) {
		fmt.Fprintf(a.out, "Please fill in: %s\n", strings.Join(a.labels(validationErr.Fields), ", "))
		return err
	}
	return a.after(ctx, err)
}

// Delete removes a record after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	if a.active == nil {
		return a.noScreen()
	}
	id, err := parseID(args)
	if err != nil {
		fmt.Fprintln(a.out, "Usage: delete <id>")
		return err
	}
	err = a.active.remove(ctx, id, a.confirmer)
	if errors.Is(err, resource.ErrDeclined) {
		fmt.Fprintln(a.out, "Deletion cancelled.")
		return err
	}
	return a.after(ctx, err)
}

// Cancel discards the draft.
func (a *App) Cancel() error {
	if a.active == nil {
		return a.noScreen()
	}
	a.active.cancel()
	a.render()
	return nil
}

// Show renders the active view again without any request.
func (a *App) Show(context.Context) error {
	switch {
	case a.active != nil:
		a.active.render(a.out)
	case a.dashboard != nil:
		a.renderDashboard()
	default:
		fmt.Fprintln(a.out, loginHint)
	}
	return nil
}

func (a *App) settle(ctx context.Context) {
	for hops := 0; a.next != "" && hops < maxRedirects; hops++ {
		target := a.next
		a.next = ""
		a.mount(ctx, target)
	}
}

func (a *App) mount(ctx context.Context, target guard.Route) {
	a.unmountAll()
	a.logger.Debug("mounting view", zap.String("route", string(target)))

	if target == guard.RouteLogin {
		a.route = guard.RouteLogin
		a.admission = guard.Admission{}
		fmt.Fprintln(a.out, loginHint)
		return
	}

	admission, err := a.guard.Admit(ctx)
	if err != nil {
		return
	}
	a.admission = admission

	switch target {
	case guard.RouteDashboard:
		a.mountDashboard(ctx)
	case guard.RouteMessages:
		a.mountScreen(ctx, target, a.newMessageScreen)
	case guard.RoutePositions:
		a.mountScreen(ctx, target, a.newPositionScreen)
	default:
		a.logger.Warn("unknown route", zap.String("route", string(target)))
		a.Navigate(guard.RouteDashboard)
	}
}

func (a *App) mountDashboard(ctx context.Context) {
	controller, err := resource.NewController(resource.ControllerConfig[resource.Message]{
		Resource:   resource.Messages,
		Requester:  a.gateway,
		Redirector: a.guard,
		Logger:     a.logger,
	})
	if err != nil {
		a.logger.Error("failed to construct dashboard", zap.Error(err))
		return
	}
	a.dashboard = controller
	a.route = guard.RouteDashboard
	a.quotes.Next()

	_ = controller.LoadList(ctx)
	if a.next != "" {
		return
	}
	if !a.quiet {
		a.renderDashboard()
	}
}

func (a *App) mountScreen(ctx context.Context, route guard.Route, build func() (screen, error)) {
	current, err := build()
	if err != nil {
		a.logger.Error("failed to construct view", zap.String("route", string(route)), zap.Error(err))
		return
	}
	a.active = current
	a.route = route

	_ = current.load(ctx)
	if a.next != "" {
		return
	}
	a.render()
}

func (a *App) newMessageScreen() (screen, error) {
	controller, err := resource.NewController(resource.ControllerConfig[resource.Message]{
		Resource:   resource.Messages,
		Requester:  a.gateway,
		Redirector: a.guard,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	return newResourceScreen(controller, messageHeadings), nil
}

func (a *App) newPositionScreen() (screen, error) {
	controller, err := resource.NewController(resource.ControllerConfig[resource.Position]{
		Resource:   resource.Positions,
		Requester:  a.gateway,
		Redirector: a.guard,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}
	return newResourceScreen(controller, positionHeadings), nil
}

func (a *App) unmountAll() {
	if a.dashboard != nil {
		a.dashboard.Unmount()
		a.dashboard = nil
	}
	if a.active != nil {
		a.active.unmount()
		a.active = nil
	}
}

// after renders the outcome of a controller operation, or follows the
// redirect it triggered.
func (a *App) after(ctx context.Context, err error) error {
	if a.next != "" {
		a.settle(ctx)
		return err
	}
	a.render()
	return err
}

func (a *App) render() {
	if a.quiet || a.active == nil {
		return
	}
	a.active.render(a.out)
}

func (a *App) renderDashboard() {
	fmt.Fprintf(a.out, "Welcome, %s\n\n", a.admission.DisplayName())

	fmt.Fprintln(a.out, "Your Bearer Token")
	fmt.Fprintln(a.out, "  Keep this secure and do not share it.")
	fmt.Fprintf(a.out, "  %s\n\n", tokenDisplay(a.admission.Token))

	fmt.Fprintln(a.out, "Inspirational Quote")
	a.printQuote(a.quotes.Current())
	fmt.Fprintln(a.out)

	fmt.Fprintln(a.out, "Messages")
	state := a.dashboard.Snapshot()
	switch {
	case state.Err != "":
		fmt.Fprintf(a.out, "  Failed to load system messages: %s\n", state.Err)
	case len(state.Records) == 0:
		fmt.Fprintln(a.out, "  No messages available.")
	default:
		for _, message := range state.Records {
			fmt.Fprintf(a.out, "  %s\n    Name: %s\n", message.MessageContent, message.MessageCode)
		}
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Quick Actions: messages, positions, quote, copy, logout")
}

func (a *App) printQuote(quote widgets.Quote) {
	fmt.Fprintf(a.out, "  \"%s\"\n    - %s\n", quote.Text, quote.Author)
}

func (a *App) greet(token string) {
	claims, err := session.Decode(token)
	if err != nil {
		fmt.Fprintln(a.out, "Logged in.")
		return
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", claims.DisplayName())
}

func (a *App) noScreen() error {
	fmt.Fprintln(a.out, "Open messages or positions first.")
	return ErrNoScreen
}

func (a *App) labels(names []string) []string {
	labels := make([]string, 0, len(names))
	for _, name := range names {
		label := name
		for _, field := range a.active.fields() {
			if field.Name == name {
				label = field.Label
				break
			}
		}
		labels = append(labels, label)
	}
	return labels
}

func tokenDisplay(token string) string {
	if token == "" {
		return noTokenDisplay
	}
	return token
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, ErrUsage
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUsage
	}
	return id, nil
}

func capitalize(text string) string {
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

func orStdin(reader io.Reader) io.Reader {
	if reader == nil {
		return os.Stdin
	}
	return reader
}

func orStdout(writer io.Writer) io.Writer {
	if writer == nil {
		return os.Stdout
	}
	return writer
}
