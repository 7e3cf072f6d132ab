package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// hook is a named start/stop pair. Either function may be nil.
type hook struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle starts components in registration order and stops them in reverse.
type Lifecycle struct {
	mu      sync.Mutex
	hooks   []hook
	started int
	running bool
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Append registers a component by name.
func (l *Lifecycle) Append(name string, start, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, start: start, stop: stop})
}

// OnStart registers a callback to run on startup.
func (l *Lifecycle) OnStart(name string, callback func(context.Context) error) {
	l.Append(name, callback, nil)
}

// OnStop registers a callback to run on shutdown.
func (l *Lifecycle) OnStop(name string, callback func(context.Context) error) {
	l.Append(name, nil, callback)
}

// RegisterCloser registers a closer to be closed on shutdown.
func (l *Lifecycle) RegisterCloser(name string, c interface{ Close() error }) {
	l.OnStop(name, func(context.Context) error { return c.Close() })
}

// Start runs every start callback. When one fails, the components already
// started are stopped again in reverse order.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return errors.New("lifecycle already started")
	}

	for i, h := range l.hooks {
		if h.start == nil {
			continue
		}
		if err := h.start(ctx); err != nil {
			l.stopFrom(ctx, i-1, true)
			return fmt.Errorf("starting %s: %w", h.name, err)
		}
	}

	l.started = len(l.hooks)
	l.running = true
	return nil
}

// Stop runs the stop callbacks of started components in reverse order.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}
	err := l.stopFrom(ctx, l.started-1, false)
	l.running = false
	l.started = 0
	return err
}

func (l *Lifecycle) stopFrom(ctx context.Context, last int, rollback bool) error {
	var errs []error
	for i := last; i >= 0; i-- {
		h := l.hooks[i]
		if h.stop == nil {
			continue
		}
		if err := h.stop(ctx); err != nil {
			if rollback {
				slog.Warn("lifecycle rollback: stop callback failed", "component", h.name, "error", err)
			}
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
