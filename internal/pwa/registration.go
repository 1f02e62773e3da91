package pwa

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source hands out the worker for the currently deployed version. The
// registration polls it the way a page polls the server for a new worker
// script.
type Source interface {
	Latest() *Worker
}

var ErrNoController = errors.New("no worker controls the page")

// Registration is the page-side coordinator: it registers the first worker,
// polls for updates immediately and on a fixed interval, and forces exactly
// one reload when a new worker takes control.
type Registration struct {
	source   Source
	reload   func()
	interval time.Duration
	log      logrus.FieldLogger

	mu         sync.Mutex
	controller *Worker
	installing *Worker
	refreshing bool
}

// NewRegistration wires a page to a worker source. reload is the full-page
// reload primitive; it fires at most once per registration lifetime.
func NewRegistration(source Source, reload func(), interval time.Duration, log logrus.FieldLogger) *Registration {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Registration{
		source:   source,
		reload:   reload,
		interval: interval,
		log:      log,
	}
}

// Register performs the initial registration and the immediate update check
// the page does on load.
func (r *Registration) Register(ctx context.Context) error {
	return r.Update(ctx)
}

// Run polls for updates until the context is cancelled.
func (r *Registration) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Update(ctx); err != nil {
				r.log.WithField("error", err).Warn("worker update check failed")
			}
		}
	}
}

// Update asks the source for the latest worker and, when it is newer than
// the current controller, runs it through install and activation. Because
// the worker skip-waits, activation follows install directly and the
// controller change fires before Update returns.
func (r *Registration) Update(ctx context.Context) error {
	next := r.source.Latest()
	if next == nil {
		return nil
	}

	r.mu.Lock()
	if r.controller != nil && next.Version() <= r.controller.Version() {
		r.mu.Unlock()
		return nil
	}
	if r.installing != nil && r.installing.Version() == next.Version() {
		r.mu.Unlock()
		return nil
	}
	// A still-installing older worker is superseded before it ever ran.
	if r.installing != nil {
		r.installing.MarkRedundant()
	}
	r.installing = next
	r.mu.Unlock()

	next.OnControllerChange(r.onControllerChange)

	if err := next.Install(ctx); err != nil {
		r.clearInstalling(next)
		return err
	}
	r.log.WithField("sw_version", next.Version()).Info("new worker installed")

	if err := next.Activate(ctx); err != nil {
		r.clearInstalling(next)
		return err
	}

	r.mu.Lock()
	previous := r.controller
	r.controller = next
	if r.installing == next {
		r.installing = nil
	}
	r.mu.Unlock()

	if previous != nil {
		previous.MarkRedundant()
	}
	return nil
}

func (r *Registration) clearInstalling(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installing == w {
		r.installing = nil
	}
}

// Controller returns the worker currently controlling the page, nil before
// the first activation.
func (r *Registration) Controller() *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controller
}

// ControllerVersion runs the report-your-version exchange over a dedicated
// reply channel.
func (r *Registration) ControllerVersion(ctx context.Context) (int, error) {
	controller := r.Controller()
	if controller == nil {
		return 0, ErrNoController
	}
	reply := make(chan VersionReply, 1)
	controller.HandleMessage(Message{Type: MessageGetVersion, Reply: reply})
	select {
	case v := <-reply:
		return v.Version, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// onControllerChange fires the reload exactly once, no matter how many
// controller-change notifications arrive.
func (r *Registration) onControllerChange(version int) {
	r.mu.Lock()
	first := r.controller != nil && !r.refreshing
	if first {
		r.refreshing = true
	}
	r.mu.Unlock()

	if first {
		r.log.WithField("sw_version", version).Info("controller changed, reloading page")
		r.reload()
	}
}
