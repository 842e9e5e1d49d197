package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/grpweb/grpweb/internal/gateway"
	"go.uber.org/zap"
)

var (
	// ErrBusy rejects an operation while another request of the same
	// controller is outstanding.
	ErrBusy = errors.New("resource: request already in flight")
	// ErrUnmounted reports that the owning view went away; the result of the
	// request was discarded.
	ErrUnmounted = errors.New("resource: view unmounted")
	// ErrDeclined reports that the user did not confirm a deletion.
	ErrDeclined = errors.New("resource: deletion not confirmed")
	// ErrMissingIdentifier rejects deletion without a record identifier.
	ErrMissingIdentifier = errors.New("resource: record identifier required")
	// ErrUnknownField rejects edits of fields the resource does not declare.
	ErrUnknownField = errors.New("resource: unknown field")

	errMissingRequester  = errors.New("resource: requester required")
	errMissingRedirector = errors.New("resource: redirector required")
)

// ValidationError lists the declared fields left empty in a draft.
type ValidationError struct {
	Resource string
	Fields   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: required fields missing: %s", e.Resource, strings.Join(e.Fields, ", "))
}

// Requester performs an API call. *gateway.Gateway satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body any, out any) error
}

// Redirector handles an invalid session. *guard.Guard satisfies it.
type Redirector interface {
	RedirectToLogin(ctx context.Context)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// ControllerConfig bundles the collaborators of a Controller.
type ControllerConfig[R Record] struct {
	Resource   Resource[R]
	Requester  Requester
	Redirector Redirector
	Logger     *zap.Logger
}

// Controller holds the list and form state of one resource screen and keeps
// the list in step with the server after every mutation.
type Controller[R Record] struct {
	resource   Resource[R]
	requester  Requester
	redirector Redirector
	logger     *zap.Logger

	mu       sync.Mutex
	state    State[R]
	inFlight bool
	alive    bool
}

// NewController constructs a mounted controller with an empty draft.
func NewController[R Record](cfg ControllerConfig[R]) (*Controller[R], error) {
	if err := cfg.Resource.validate(); err != nil {
		return nil, err
	}
	if cfg.Requester == nil {
		return nil, errMissingRequester
	}
	if cfg.Redirector == nil {
		return nil, errMissingRedirector
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller[R]{
		resource:   cfg.Resource,
		requester:  cfg.Requester,
		redirector: cfg.Redirector,
		logger:     logger.With(zap.String("resource", cfg.Resource.Name)),
		state: State[R]{
			Records: []R{},
			Draft:   make([]string, len(cfg.Resource.Fields)),
		},
		alive: true,
	}, nil
}

// Resource returns the descriptor the controller was built with.
func (c *Controller[R]) Resource() Resource[R] {
	return c.resource
}

// Snapshot returns a copy of the current state for rendering.
func (c *Controller[R]) Snapshot() State[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Find returns the listed record with the given identifier.
func (c *Controller[R]) Find(id int64) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.find(id)
}

// Unmount marks the owning view as gone. Responses arriving afterwards are
// discarded without touching the state.
func (c *Controller[R]) Unmount() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

// LoadList replaces the list with the server's collection, in server order.
func (c *Controller[R]) LoadList(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.load(ctx)
}

// SelectForEdit copies record into the draft and makes it the edit target.
func (c *Controller[R]) SelectForEdit(record R) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Draft = normalizedValues(record.Values(), len(c.resource.Fields))
	id, ok := record.Identifier()
	c.state.Editing = ok
	c.state.EditingID = 0
	if ok {
		c.state.EditingID = id
	}
}

// SetField updates one draft value, addressed by wire name or label.
func (c *Controller[R]) SetField(name, value string) error {
	index, ok := c.resource.FieldIndex(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	c.mu.Lock()
	c.state.Draft[index] = value
	c.mu.Unlock()
	return nil
}

// SetDraft replaces all draft values at once.
func (c *Controller[R]) SetDraft(values []string) {
	c.mu.Lock()
	c.state.Draft = normalizedValues(values, len(c.resource.Fields))
	c.mu.Unlock()
}

// CancelEdit clears the draft and the edit target without any request.
func (c *Controller[R]) CancelEdit() {
	c.mu.Lock()
	c.clearDraftLocked()
	c.mu.Unlock()
}

// Submit creates the draft, or updates the edit target, then reloads the list.
// Empty fields fail with *ValidationError before any request is made.
func (c *Controller[R]) Submit(ctx context.Context) error {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	if missing := c.missingFieldsLocked(); len(missing) > 0 {
		c.mu.Unlock()
		return &ValidationError{Resource: c.resource.Name, Fields: missing}
	}
	values := append([]string(nil), c.state.Draft...)
	editing, editingID := c.state.Editing, c.state.EditingID
	c.inFlight = true
	c.state.Err = ""
	c.mu.Unlock()
	defer c.release()

	payload := c.resource.Build(values)
	var err error
	if editing {
		err = c.requester.Do(ctx, http.MethodPut, c.resource.ItemPath(editingID), payload, nil)
	} else {
		err = c.requester.Do(ctx, http.MethodPost, c.resource.Collection, payload, nil)
	}
	if err != nil {
		return c.fail(ctx, "Request", err)
	}

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.clearDraftLocked()
	c.mu.Unlock()

	c.logger.Debug("record saved", zap.Bool("update", editing), zap.Int64("id", editingID))
	return c.load(ctx)
}

// Remove deletes the record after confirmation, then reloads the list. When
// the record was the edit target the draft is cleared.
func (c *Controller[R]) Remove(ctx context.Context, id int64, confirmer Confirmer) error {
	if id == 0 {
		return ErrMissingIdentifier
	}
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	if confirmer == nil || !confirmer.Confirm(fmt.Sprintf("Delete this %s?", c.resource.Name)) {
		return ErrDeclined
	}

	c.mu.Lock()
	c.state.Err = ""
	c.mu.Unlock()

	if err := c.requester.Do(ctx, http.MethodDelete, c.resource.ItemPath(id), nil, nil); err != nil {
		return c.fail(ctx, "Delete", err)
	}

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if c.state.Editing && c.state.EditingID == id {
		c.clearDraftLocked()
	}
	c.mu.Unlock()

	c.logger.Debug("record deleted", zap.Int64("id", id))
	return c.load(ctx)
}

func (c *Controller[R]) load(ctx context.Context) error {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.state.Loading = true
	c.state.Err = ""
	c.mu.Unlock()

	var records []R
	err := c.requester.Do(ctx, http.MethodGet, c.resource.Collection, nil, &records)

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.state.Loading = false
	c.mu.Unlock()

	if err != nil {
		return c.fail(ctx, "Fetch", err)
	}
	if records == nil {
		records = []R{}
	}

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.state.Records = records
	c.mu.Unlock()

	c.logger.Debug("list loaded", zap.Int("count", len(records)))
	return nil
}

// fail converts a request error into view state. An unauthorized response
// redirects without a banner; anything else becomes the error message.
func (c *Controller[R]) fail(ctx context.Context, operation string, err error) error {
	unauthorized := errors.Is(err, gateway.ErrUnauthorized)

	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return ErrUnmounted
	}
	if !unauthorized {
		c.state.Err = describeFailure(operation, err)
	}
	c.mu.Unlock()

	if unauthorized {
		c.logger.Info("session rejected by api", zap.String("operation", operation))
		c.redirector.RedirectToLogin(ctx)
		return err
	}
	c.logger.Warn("request failed", zap.String("operation", operation), zap.Error(err))
	return err
}

func (c *Controller[R]) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return ErrUnmounted
	}
	if c.inFlight {
		return ErrBusy
	}
	c.inFlight = true
	return nil
}

func (c *Controller[R]) release() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

func (c *Controller[R]) clearDraftLocked() {
	c.state.Draft = make([]string, len(c.resource.Fields))
	c.state.Editing = false
	c.state.EditingID = 0
}

func (c *Controller[R]) missingFieldsLocked() []string {
	var missing []string
	for index, field := range c.resource.Fields {
		if strings.TrimSpace(c.state.Draft[index]) == "" {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

func describeFailure(operation string, err error) string {
	var requestErr *gateway.RequestError
	if errors.As(err, &requestErr) {
		switch {
		case requestErr.Message != "":
			return requestErr.Message
		case requestErr.StatusCode != 0 && requestErr.Err == nil:
			return fmt.Sprintf("%s failed: %d", operation, requestErr.StatusCode)
		case requestErr.Err != nil:
			return fmt.Sprintf("%s failed: %v", operation, requestErr.Err)
		}
	}
	return fmt.Sprintf("%s failed: %v", operation, err)
}

func normalizedValues(values []string, size int) []string {
	normalized := make([]string, size)
	copy(normalized, values)
	return normalized
}
