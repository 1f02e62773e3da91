package pwa

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// FSFetcher is the "network" behind the worker: it resolves requests against
// the deployed asset directory. A missing file is a successful fetch with a
// 404 status, not a network failure.
type FSFetcher struct {
	root  fs.FS
	scope string
}

func NewFSFetcher(root fs.FS, scope string) *FSFetcher {
	return &FSFetcher{root: root, scope: scope}
}

func (f *FSFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(cacheKey(req), f.scope)
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		name = "index.html"
	}

	body, err := fs.ReadFile(f.root, name)
	if errors.Is(err, fs.ErrNotExist) {
		return &Response{Status: http.StatusNotFound, Header: http.Header{}}, nil
	}
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		header.Set("Content-Type", ct)
	}
	return &Response{Status: http.StatusOK, Header: header, Body: body}, nil
}

// Handler mounts the controlling worker in front of the static asset tree.
// Requests arriving before any worker controls the page go straight to the
// fetcher, like a page the worker has not claimed yet.
type Handler struct {
	reg     *Registration
	fetcher Fetcher
	log     logrus.FieldLogger
}

func NewHandler(reg *Registration, fetcher Fetcher, log logrus.FieldLogger) *Handler {
	return &Handler{reg: reg, fetcher: fetcher, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &Request{
		URL:         r.URL.Path,
		Destination: destinationFor(r),
		Navigate:    isNavigation(r),
	}

	var resp *Response
	var err error
	if worker := h.reg.Controller(); worker != nil {
		resp, err = worker.HandleFetch(r.Context(), req)
	} else {
		resp, err = h.fetcher.Fetch(r.Context(), req)
	}
	if err != nil {
		h.log.WithFields(logrus.Fields{"url": req.URL, "error": err}).Warn("asset fetch failed")
		http.Error(w, "asset unavailable", http.StatusBadGateway)
		return
	}

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// destinationFor classifies a request the way the browser tags destinations.
func destinationFor(r *http.Request) Destination {
	switch path.Ext(r.URL.Path) {
	case ".js", ".mjs":
		return DestScript
	case ".css":
		return DestStyle
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico":
		return DestImage
	case "", ".html":
		return DestDocument
	default:
		return DestOther
	}
}

func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return destinationFor(r) == DestDocument &&
		strings.Contains(r.Header.Get("Accept"), "text/html")
}
