package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/capazme/VisuaLex-Beta/internal/domain/shared"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultStartupTimeout = 30 * time.Second

// Config contains configuration for the shared browser
type Config struct {
	// RemoteURL is the URL of a remote Chrome/Chromium instance
	// (optional). If empty, chromedp launches a local browser.
	RemoteURL string
	// Headless mode (default: true)
	Headless bool
	// DisableGPU disables GPU hardware acceleration (default: true for server environments)
	DisableGPU bool
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// StartupTimeout bounds browser creation
	StartupTimeout time.Duration
}

// CreateFunc creates the underlying browser resources: a tab context
// usable with chromedp.Run and a cleanup that tears everything down.
// Replaceable in tests.
type CreateFunc func(ctx context.Context) (tab context.Context, cleanup func(), err error)

// Handle is the exclusive, reusable ownership token for the one
// rendering-capable browser. A handle is valid between Acquire and
// Release; Release must be called exactly once per unit of work.
type Handle struct {
	mgr      *Manager
	tab      context.Context
	released int32
	broken   int32
}

// Ctx returns the chromedp tab context for running automation actions.
func (h *Handle) Ctx() context.Context {
	return h.tab
}

// Invalidate marks the handle broken. Release then closes the browser
// instead of keeping it for reuse, so a failed unit of work never
// hands a wedged browser to the next one.
func (h *Handle) Invalidate() {
	atomic.StoreInt32(&h.broken, 1)
}

// Release ends the unit of work. A healthy browser stays open for the
// next acquisition; a broken one is closed and the slot cleared.
// Calling Release more than once is a no-op.
func (h *Handle) Release() {
	if !atomic.CompareAndSwapInt32(&h.released, 0, 1) {
		return
	}
	if atomic.LoadInt32(&h.broken) == 1 {
		h.mgr.closeSlot()
	}
	h.mgr.sem.release()
}

// Manager owns the lifecycle of the single external rendering
// resource. At most one live browser exists per process; units of work
// are strictly serialized around it.
type Manager struct {
	cfg    Config
	logger *zap.Logger
	create CreateFunc

	sem semaphore

	mu      sync.Mutex
	tab     context.Context
	cleanup func()
}

// Option is a functional option for Manager configuration
type Option func(*Manager)

// WithLogger sets the logger for the manager
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCreateFunc overrides how the browser is created. Used by tests
// and by deployments pointing at a remote allocator.
func WithCreateFunc(create CreateFunc) Option {
	return func(m *Manager) {
		if create != nil {
			m.create = create
		}
	}
}

// NewManager creates a Manager. No browser is started until the first
// Acquire.
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	m := &Manager{
		cfg:    cfg,
		logger: zap.NewNop(),
		sem:    newSemaphore(),
	}
	m.create = m.createChromedp
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the existing open handle if one is live, otherwise
// creates a new one. It blocks while another unit of work holds the
// resource; ctx bounds the wait. Creation failure surfaces as
// RESOURCE_UNAVAILABLE.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	if err := m.sem.acquire(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tab == nil {
		startCtx, cancel := context.WithTimeout(ctx, m.cfg.StartupTimeout)
		tab, cleanup, err := m.create(startCtx)
		cancel()
		if err != nil {
			m.sem.release()
			m.logger.Error("browser startup failed", zap.Error(err))
			return nil, shared.NewDomainError(shared.CodeResourceUnavailable,
				"rendering browser could not be started: "+err.Error())
		}
		m.tab = tab
		m.cleanup = cleanup
		m.logger.Info("rendering browser started")
	} else {
		m.logger.Debug("reusing open rendering browser")
	}

	return &Handle{mgr: m, tab: m.tab}, nil
}

// WithHandle runs fn as one scoped unit of work: acquire, run, release
// on every exit path. When fn fails the handle is invalidated so the
// browser is torn down rather than reused.
func (m *Manager) WithHandle(ctx context.Context, fn func(h *Handle) error) error {
	h, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	if err := fn(h); err != nil {
		h.Invalidate()
		return err
	}
	return nil
}

// Shutdown closes the browser if one is open. A no-op otherwise. It
// waits for any in-flight unit of work to finish first.
func (m *Manager) Shutdown() {
	if err := m.sem.acquire(context.Background()); err != nil {
		return
	}
	defer m.sem.release()
	m.closeSlot()
}

// Live reports whether a browser is currently open.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tab != nil
}

// closeSlot tears down the current browser and clears the shared slot.
func (m *Manager) closeSlot() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cleanup != nil {
		m.cleanup()
		m.logger.Info("rendering browser closed")
	}
	m.tab = nil
	m.cleanup = nil
}

// createChromedp starts a Chrome instance via chromedp and returns the
// tab context plus its teardown.
func (m *Manager) createChromedp(ctx context.Context) (context.Context, func(), error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc

	if m.cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), m.cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.Flag("disable-gpu", m.cfg.DisableGPU),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-default-apps", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
			chromedp.Flag("disable-background-networking", true),
			chromedp.Flag("disable-sync", true),
		)
		if m.cfg.NoSandbox {
			opts = append(opts, chromedp.Flag("no-sandbox", true))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	tab, tabCancel := chromedp.NewContext(allocCtx)

	// Navigating to about:blank forces the browser process to start so
	// creation failures surface here, not mid-render.
	startCtx, cancel := context.WithTimeout(tab, m.cfg.StartupTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		return nil, nil, err
	}

	cleanup := func() {
		tabCancel()
		allocCancel()
	}
	return tab, cleanup, nil
}

// semaphore serializes units of work while still honoring caller
// context cancellation, which a plain mutex cannot.
type semaphore chan struct{}

func newSemaphore() semaphore {
	return make(semaphore, 1)
}

func (s semaphore) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s semaphore) release() {
	<-s
}
