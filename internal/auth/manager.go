package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/gestor-crm/gestor/internal/observability"
	"github.com/gestor-crm/gestor/internal/rbac"
	"github.com/gestor-crm/gestor/internal/shared"
)

// ErrOperationPending is returned in reject mode when another session
// operation holds the manager.
var ErrOperationPending = errors.New("auth: session operation pending")

// errWaitAborted marks a queued operation whose caller gave up before it got
// its turn.
var errWaitAborted = errors.New("auth: wait for session operation")

// ConflictPolicy decides what happens to an operation issued while another
// one is in flight.
type ConflictPolicy int

const (
	// ConflictQueue waits for the running operation (FIFO).
	ConflictQueue ConflictPolicy = iota
	// ConflictReject fails fast with ErrOperationPending.
	ConflictReject
)

// ParseConflictPolicy converts "queue" or "reject".
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queue":
		return ConflictQueue, nil
	case "reject":
		return ConflictReject, nil
	default:
		return ConflictQueue, fmt.Errorf("auth: unknown conflict policy %q", s)
	}
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	// LoginRole is assigned on login in the absence of a real identity
	// provider. Defaults to admin.
	LoginRole rbac.RoleName
	Conflict  ConflictPolicy
	// OperationTimeout bounds an operation once it holds the manager.
	OperationTimeout time.Duration
	Metrics          *observability.Metrics
	Now              func() time.Time
	NewID            func() string
}

type operation string

const (
	opRestore  operation = "restore"
	opLogin    operation = "login"
	opRegister operation = "register"
	opLogout   operation = "logout"
)

// Manager owns the Session and performs every transition on it:
// Restoring -> {Anonymous, Authenticated}, Anonymous <-> Authenticated.
type Manager struct {
	store     Store
	verifier  Verifier
	notifier  shared.Notifier
	logger    *slog.Logger
	metrics   *observability.Metrics
	session   *Session
	sem       *semaphore.Weighted
	loginRole rbac.Role
	opts      Options

	restoreOnce sync.Once
}

// NewManager constructs a Manager in the Restoring state.
func NewManager(store Store, verifier Verifier, notifier shared.Notifier, logger *slog.Logger, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("auth: store required")
	}
	if verifier == nil {
		return nil, errors.New("auth: verifier required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if notifier == nil {
		notifier = shared.Notifiers{}
	}
	if opts.LoginRole == "" {
		opts.LoginRole = rbac.RoleAdmin
	}
	loginRole, ok := rbac.DefaultRole(opts.LoginRole)
	if !ok {
		return nil, fmt.Errorf("%w: no default role %q", rbac.ErrUnknownRole, opts.LoginRole)
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Manager{
		store:     store,
		verifier:  verifier,
		notifier:  notifier,
		logger:    logger,
		metrics:   opts.Metrics,
		session:   newSession(),
		sem:       semaphore.NewWeighted(1),
		loginRole: loginRole,
		opts:      opts,
	}, nil
}

// Session returns the session owned by m for read access.
func (m *Manager) Session() *Session {
	return m.session
}

// RestoreOnStart consults the store once and settles the session. Later calls
// return immediately. The restoring flag is cleared whatever the outcome.
func (m *Manager) RestoreOnStart(ctx context.Context) {
	m.restoreOnce.Do(func() {
		m.restore(ctx)
	})
}

func (m *Manager) restore(ctx context.Context) {
	start := m.opts.Now()
	var restored *Identity
	acquired := false
	defer func() {
		m.session.finishRestore(restored)
		if acquired {
			m.sem.Release(1)
		}
		m.metrics.ObserveRestore(m.opts.Now().Sub(start))
		state := StateAnonymous
		if restored != nil {
			state = StateAuthenticated
		}
		m.logger.Info("session restored", slog.String("state", state.String()))
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.logger.Warn("session restore aborted", slog.Any("error", err))
		m.metrics.ObserveSessionOp(string(opRestore), "failure")
		return
	}
	acquired = true

	opCtx, cancel := m.operationContext(ctx)
	defer cancel()
	identity, ok, err := m.store.Load(opCtx)
	switch {
	case err != nil:
		m.logger.Warn("session store load", slog.Any("error", err))
		m.metrics.ObserveSessionOp(string(opRestore), "failure")
	case !ok:
		m.metrics.ObserveSessionOp(string(opRestore), "empty")
	default:
		restored = &identity
		m.metrics.ObserveSessionOp(string(opRestore), "success")
	}
}

// Login verifies the credentials and, on success, persists and publishes an
// identity carrying the configured login role. On failure the session and the
// store are left as they were.
func (m *Manager) Login(ctx context.Context, email, proof string) (Identity, error) {
	return m.authenticate(ctx, opLogin, Credentials{Email: email, Proof: proof})
}

// Register is Login for a new account; the identity always gets the editor role.
func (m *Manager) Register(ctx context.Context, name, email, proof string) (Identity, error) {
	return m.authenticate(ctx, opRegister, Credentials{Name: name, Email: email, Proof: proof})
}

func (m *Manager) authenticate(ctx context.Context, op operation, creds Credentials) (Identity, error) {
	if err := m.acquire(ctx); err != nil {
		m.fail(ctx, op, err)
		return Identity{}, err
	}
	defer m.sem.Release(1)

	opCtx, cancel := m.operationContext(ctx)
	defer cancel()

	m.session.beginPending()
	identity, err := m.establish(opCtx, op, creds)
	if err != nil {
		m.session.endPending()
		m.fail(ctx, op, err)
		return Identity{}, err
	}
	published := identity.Clone()
	m.session.settle(&published)

	m.logger.Info("session established",
		slog.String("operation", string(op)),
		slog.String("identity", identity.ID),
		slog.String("role", string(identity.Role.Name())))
	m.metrics.ObserveSessionOp(string(op), "success")
	m.notifier.Notify(ctx, successNotice(op, identity))
	return identity, nil
}

func (m *Manager) establish(ctx context.Context, op operation, creds Credentials) (Identity, error) {
	if op == opRegister && strings.TrimSpace(creds.Name) == "" {
		return Identity{}, fmt.Errorf("%w: name required", shared.ErrInvalidCredentials)
	}
	profile, err := m.verifier.Verify(ctx, creds)
	if err != nil {
		return Identity{}, err
	}
	now := m.opts.Now().UTC()
	identity := Identity{
		Name:      profile.Name,
		Email:     profile.Email,
		Avatar:    profile.Avatar,
		Active:    true,
		CreatedAt: now,
	}
	switch op {
	case opRegister:
		editor, _ := rbac.DefaultRole(rbac.RoleEditor)
		identity.ID = m.opts.NewID()
		identity.Role = editor
	default:
		identity.ID = loginIdentityID(profile.Email)
		identity.Role = m.loginRole
		identity.LastLogin = &now
	}
	if err := m.store.Save(ctx, identity); err != nil {
		return Identity{}, fmt.Errorf("auth: persist session: %w", err)
	}
	return identity, nil
}

// Logout clears the store and the session. The session becomes anonymous even
// when clearing the store fails; that failure is returned.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		m.fail(ctx, opLogout, err)
		return err
	}
	defer m.sem.Release(1)

	opCtx, cancel := m.operationContext(ctx)
	defer cancel()

	m.session.beginPending()
	clearErr := m.store.Clear(opCtx)
	m.session.settle(nil)

	if clearErr != nil {
		m.logger.Warn("session store clear", slog.Any("error", clearErr))
		m.metrics.ObserveSessionOp(string(opLogout), "failure")
	} else {
		m.metrics.ObserveSessionOp(string(opLogout), "success")
	}
	m.logger.Info("session cleared")
	if clearErr != nil {
		m.notifier.Notify(ctx, shared.Notification{
			Title:       "Sign-out incomplete",
			Description: "You were signed out here, but the saved session could not be removed",
		})
		return fmt.Errorf("auth: clear session: %w", clearErr)
	}
	m.notifier.Notify(ctx, shared.Notification{
		Title:       "Signed out",
		Description: "You have been signed out",
		Success:     true,
	})
	return nil
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.opts.Conflict == ConflictReject {
		if !m.sem.TryAcquire(1) {
			return ErrOperationPending
		}
		return nil
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", errWaitAborted, err)
	}
	return nil
}

// operationContext detaches an acquired operation from the caller's
// cancellation so it always runs to completion, bounded by OperationTimeout.
func (m *Manager) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.opts.OperationTimeout)
}

func (m *Manager) fail(ctx context.Context, op operation, err error) {
	m.logger.Warn("session operation failed", slog.String("operation", string(op)), slog.Any("error", err))
	m.metrics.ObserveSessionOp(string(op), "failure")
	m.notifier.Notify(ctx, failureNotice(op, err))
}

func successNotice(op operation, identity Identity) shared.Notification {
	title := "Signed in"
	if op == opRegister {
		title = "Account created"
	}
	return shared.Notification{Title: title, Description: "Welcome, " + identity.Name, Success: true}
}

func failureNotice(op operation, err error) shared.Notification {
	if errors.Is(err, ErrOperationPending) || errors.Is(err, errWaitAborted) {
		return shared.Notification{Title: "Please wait", Description: "Another session operation is still in progress"}
	}
	var notice shared.Notification
	switch op {
	case opRegister:
		notice = shared.Notification{Title: "Registration failed", Description: "The account could not be created"}
		if errors.Is(err, shared.ErrInvalidCredentials) {
			notice.Description = "Name, email and password are required"
		}
	case opLogout:
		notice = shared.Notification{Title: "Sign-out failed", Description: "The session could not be closed"}
	default:
		notice = shared.Notification{Title: "Sign-in failed", Description: "The session could not be saved"}
		if errors.Is(err, shared.ErrInvalidCredentials) {
			notice.Description = "Incorrect email or password"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		notice.Description = "The operation timed out, try again"
	}
	return notice
}

// loginIdentityID derives a stable identifier from the email so repeated
// logins of the same operator keep the same id.
func loginIdentityID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
}
