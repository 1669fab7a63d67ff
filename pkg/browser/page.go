package browser

import (
	"context"
	"sync"
)

// Response is a network response observed by the page
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// FetchResult is the outcome of a fetch issued from inside the page. Status 0
// means the fetch threw before a response arrived; Error then holds the
// in-page exception text.
type FetchResult struct {
	Status int
	Body   []byte
	Error  string
}

// Cookie is a browser cookie in a transport-neutral form
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"http_only,omitempty"`
}

// Point is a viewport coordinate
type Point struct {
	X, Y float64
}

// Page is the slice of a browser tab the harvester drives
type Page interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	Has(ctx context.Context, selector string) (bool, error)
	// Fetch issues a GET from the page's authenticated context
	Fetch(ctx context.Context, url string) (FetchResult, error)
	MoveMouse(ctx context.Context, to Point) error
	Reload(ctx context.Context) error
	// OnResponse registers handler for responses whose URL satisfies match.
	// The returned function detaches the handler.
	OnResponse(match func(url string) bool, handler func(Response)) (detach func())
}

// CookieJar is implemented by pages that can import and export cookies
type CookieJar interface {
	SetCookies(ctx context.Context, cookies []Cookie) error
	Cookies(ctx context.Context, urls ...string) ([]Cookie, error)
}

// handlerSet is a registry of response handlers keyed by registration id
type handlerSet struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]responseHandler
}

type responseHandler struct {
	match  func(string) bool
	handle func(Response)
}

func (h *handlerSet) add(match func(string) bool, handle func(Response)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.items == nil {
		h.items = make(map[int]responseHandler)
	}
	id := h.nextID
	h.nextID++
	h.items[id] = responseHandler{match: match, handle: handle}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.items, id)
			h.mu.Unlock()
		})
	}
}

// matching returns handlers interested in url
func (h *handlerSet) matching(url string) []func(Response) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []func(Response)
	for _, item := range h.items {
		if item.match == nil || item.match(url) {
			out = append(out, item.handle)
		}
	}
	return out
}

func (h *handlerSet) empty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items) == 0
}
