package pwa

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// WorkerState is the lifecycle state of a cache worker. A worker moves
// Installing → Installed → Activating → Activated; Redundant is the terminal
// state of a worker superseded by a newer version.
type WorkerState int

const (
	StateInstalling WorkerState = iota
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s WorkerState) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return "unknown"
	}
}

// MessageType identifies the typed messages the page can send the worker.
type MessageType string

const (
	MessageSkipWaiting MessageType = "SKIP_WAITING"
	MessageGetVersion  MessageType = "GET_VERSION"
)

// Message is one page→worker message. GetVersion messages carry a reply
// channel; the worker answers on it and never blocks.
type Message struct {
	Type  MessageType
	Reply chan<- VersionReply
}

type VersionReply struct {
	Version int
}

var (
	ErrNotInstalling = errors.New("worker is not in the installing state")
	ErrNotInstalled  = errors.New("worker has not finished installing")
	ErrRedundant     = errors.New("worker is redundant")
)

// Worker intercepts same-origin requests and serves them through a
// version-tagged cache bucket. It never surfaces a fetch failure as an error
// state to the page; the worst case is a stale or uncached asset.
type Worker struct {
	version int
	origin  string
	scope   string
	caches  *CacheStorage
	fetcher Fetcher
	log     logrus.FieldLogger

	mu          sync.Mutex
	state       WorkerState
	skipWaiting bool
	claimed     []func(version int)
}

// NewWorker builds a worker for one deployment version. origin is the page's
// own origin (scheme://host[:port]); scope is the path prefix the app is
// served under, ending in a slash.
func NewWorker(version int, origin, scope string, caches *CacheStorage, fetcher Fetcher, log logrus.FieldLogger) *Worker {
	return &Worker{
		version: version,
		origin:  origin,
		scope:   scope,
		caches:  caches,
		fetcher: fetcher,
		log:     log.WithField("sw_version", version),
		state:   StateInstalling,
	}
}

func (w *Worker) Version() int { return w.version }

func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ShellURLs returns the minimal app shell precached during install.
func (w *Worker) ShellURLs() []string {
	return []string{w.scope, w.scope + "index.html"}
}

// Install opens the version-tagged bucket, precaches the shell, and calls
// skip-waiting so the worker does not sit behind still-open pages. Trading
// the safe rollover for "always on the latest version" is deliberate.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateRedundant {
		w.mu.Unlock()
		return ErrRedundant
	}
	if w.state != StateInstalling {
		w.mu.Unlock()
		return ErrNotInstalling
	}
	w.mu.Unlock()

	w.log.Info("installing cache worker")
	bucket := w.caches.Open(BucketName(w.version))
	if err := bucket.AddAll(ctx, w.fetcher, w.ShellURLs()); err != nil {
		// The shell stays servable from the network; install just did not
		// seed the cache.
		w.log.WithField("error", err).Warn("shell precache failed")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateRedundant {
		return ErrRedundant
	}
	w.state = StateInstalled
	w.skipWaiting = true
	return nil
}

// Activate garbage-collects every bucket of a different version and claims
// all open pages immediately, notifying them of the controller change.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateRedundant {
		w.mu.Unlock()
		return ErrRedundant
	}
	if w.state != StateInstalled {
		w.mu.Unlock()
		return ErrNotInstalled
	}
	w.state = StateActivating
	w.mu.Unlock()

	w.log.Info("activating cache worker")
	for _, name := range StaleBuckets(w.caches.Keys(), w.version) {
		w.log.WithField("bucket", name).Info("deleting old cache bucket")
		w.caches.Delete(name)
	}

	w.mu.Lock()
	w.state = StateActivated
	listeners := append([]func(version int){}, w.claimed...)
	w.mu.Unlock()

	for _, notify := range listeners {
		notify(w.version)
	}
	return nil
}

// MarkRedundant terminally retires the worker; a worker superseded before
// finishing installation ends here without ever activating.
func (w *Worker) MarkRedundant() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateRedundant
}

// OnControllerChange registers a callback fired when this worker claims the
// open pages at activation.
func (w *Worker) OnControllerChange(fn func(version int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.claimed = append(w.claimed, fn)
}

// HandleMessage processes one typed message from the page.
func (w *Worker) HandleMessage(msg Message) {
	switch msg.Type {
	case MessageSkipWaiting:
		w.mu.Lock()
		w.skipWaiting = true
		w.mu.Unlock()
	case MessageGetVersion:
		if msg.Reply != nil {
			msg.Reply <- VersionReply{Version: w.version}
		}
	}
}

// Intercepts reports whether the worker handles the request at all: only
// same-origin requests, and never its own source file.
func (w *Worker) Intercepts(req *Request) bool {
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	if u.IsAbs() {
		origin := u.Scheme + "://" + u.Host
		if origin != w.origin {
			return false
		}
	}
	return !strings.Contains(req.URL, "/sw.js")
}

// HandleFetch serves one intercepted request. Documents, scripts and
// anything under an assets path go network-first; everything else goes
// cache-first. Both strategies write 200 responses through to the current
// bucket and fall back to the cached index document for navigations.
func (w *Worker) HandleFetch(ctx context.Context, req *Request) (*Response, error) {
	if !w.Intercepts(req) {
		return w.fetcher.Fetch(ctx, req)
	}
	if req.Destination == DestDocument || req.Destination == DestScript ||
		strings.Contains(req.URL, "/assets/") {
		return w.networkFirst(ctx, req)
	}
	return w.cacheFirst(ctx, req)
}

func (w *Worker) networkFirst(ctx context.Context, req *Request) (*Response, error) {
	resp, err := w.fetcher.Fetch(ctx, req)
	if err == nil {
		if resp.Status == 200 {
			w.bucket().Put(cacheKey(req), resp)
		}
		return resp, nil
	}

	fetchFallbacks.WithLabelValues("network_first").Inc()
	if cached, ok := w.caches.Match(cacheKey(req)); ok {
		cacheHits.WithLabelValues("network_first").Inc()
		return cached, nil
	}
	cacheMisses.WithLabelValues("network_first").Inc()
	if req.Navigate {
		if index, ok := w.caches.Match(w.scope + "index.html"); ok {
			return index, nil
		}
	}
	return nil, err
}

func (w *Worker) cacheFirst(ctx context.Context, req *Request) (*Response, error) {
	if cached, ok := w.caches.Match(cacheKey(req)); ok {
		cacheHits.WithLabelValues("cache_first").Inc()
		return cached, nil
	}
	cacheMisses.WithLabelValues("cache_first").Inc()

	resp, err := w.fetcher.Fetch(ctx, req)
	if err == nil {
		if resp.Status == 200 {
			w.bucket().Put(cacheKey(req), resp)
		}
		return resp, nil
	}

	fetchFallbacks.WithLabelValues("cache_first").Inc()
	w.log.WithFields(logrus.Fields{"url": req.URL, "error": err}).Warn("fetch failed")
	if req.Navigate {
		if index, ok := w.caches.Match(w.scope + "index.html"); ok {
			return index, nil
		}
	}
	return nil, err
}

func (w *Worker) bucket() *Bucket {
	return w.caches.Open(BucketName(w.version))
}

// cacheKey normalizes a request to its cache key. Responses are keyed by
// path, so an absolute same-origin URL and its path form hit the same entry.
func cacheKey(req *Request) string {
	u, err := url.Parse(req.URL)
	if err != nil {
		return req.URL
	}
	if u.IsAbs() {
		if u.Path == "" {
			return "/"
		}
		return u.Path
	}
	return req.URL
}
