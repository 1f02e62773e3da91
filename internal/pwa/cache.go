// Package pwa reimplements the installable-app cache worker as an in-process
// actor: versioned response caches, network-first/cache-first fetch
// strategies, an explicit lifecycle state machine, and a typed message
// protocol between the worker and the page-side registration.
package pwa

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// CachePrefix tags every bucket this application owns.
const CachePrefix = "vereinskasse-cache-v"

// BucketName builds the cache bucket name for a worker version. The version
// is a monotonic deployment counter; it is the only thing distinguishing one
// deployment's cache from the next.
func BucketName(version int) string {
	return fmt.Sprintf("%s%d", CachePrefix, version)
}

// StaleBuckets returns the bucket names that do not belong to the given
// version and should be garbage-collected during activation.
func StaleBuckets(names []string, version int) []string {
	current := BucketName(version)
	stale := make([]string, 0, len(names))
	for _, name := range names {
		if name != current {
			stale = append(stale, name)
		}
	}
	return stale
}

// Destination mirrors the browser's request destination classification; the
// worker only distinguishes documents and scripts from everything else.
type Destination string

const (
	DestDocument Destination = "document"
	DestScript   Destination = "script"
	DestStyle    Destination = "style"
	DestImage    Destination = "image"
	DestOther    Destination = ""
)

// Request is the slice of a network request the worker cares about.
type Request struct {
	URL         string
	Destination Destination
	// Navigate marks page navigations, which get the cached shell as a
	// final fallback.
	Navigate bool
}

// Response is a cached or fetched response body with its status and headers.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns an independent copy, so one copy can go into a cache bucket
// while the other is returned to the requester.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cp := &Response{Status: r.Status, Header: r.Header.Clone()}
	cp.Body = make([]byte, len(r.Body))
	copy(cp.Body, r.Body)
	return cp
}

// Fetcher is the network primitive the worker suspends on. A failed fetch
// falls back to cached content rather than propagating to the requester.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// CacheStorage is the set of named response caches, the counterpart of the
// browser's CacheStorage.
type CacheStorage struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
}

func NewCacheStorage() *CacheStorage {
	return &CacheStorage{buckets: make(map[string]*Bucket)}
}

// Open returns the named bucket, creating it when absent.
func (s *CacheStorage) Open(name string) *Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[name]
	if !ok {
		b = newBucket(name)
		s.buckets[name] = b
	}
	return b
}

// Keys lists all bucket names, sorted for deterministic iteration.
func (s *CacheStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete drops a bucket and everything cached in it.
func (s *CacheStorage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buckets[name]
	delete(s.buckets, name)
	return ok
}

// Match searches every bucket for the request URL, like the browser's
// cache-agnostic caches.match.
func (s *CacheStorage) Match(url string) (*Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if resp, ok := s.buckets[name].Match(url); ok {
			return resp, true
		}
	}
	return nil, false
}

// Bucket is one named, versioned store of cached responses, keyed by URL.
type Bucket struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*Response
}

func newBucket(name string) *Bucket {
	return &Bucket{name: name, entries: make(map[string]*Response)}
}

func (b *Bucket) Name() string { return b.name }

func (b *Bucket) Put(url string, resp *Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[url] = resp.Clone()
}

func (b *Bucket) Match(url string) (*Response, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	resp, ok := b.entries[url]
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// AddAll pre-populates the bucket by fetching every URL; any failure fails
// the whole install, matching cache.addAll.
func (b *Bucket) AddAll(ctx context.Context, fetcher Fetcher, urls []string) error {
	for _, u := range urls {
		req := &Request{URL: u, Destination: DestDocument, Navigate: strings.HasSuffix(u, "/")}
		resp, err := fetcher.Fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("precache %s: %w", u, err)
		}
		if resp.Status != http.StatusOK {
			return fmt.Errorf("precache %s: unexpected status %d", u, resp.Status)
		}
		b.Put(u, resp)
	}
	return nil
}
