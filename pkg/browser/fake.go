package browser

import (
	"context"
	"sync"
)

// FakePage is a scripted Page for tests. Fetch results are served from
// Script in order; once the script runs out, an empty page is returned.
type FakePage struct {
	// TitleFunc returns the title for the nth Title call (0-based)
	TitleFunc func(n int) string
	// HasFunc reports selector presence on the nth Title call
	HasFunc func(selector string, n int) bool
	// Script is the sequence of fetch outcomes
	Script []FetchStep

	NavigateErr error

	mu         sync.Mutex
	titleCalls int
	step       int
	navigated  []string
	fetched    []string
	moves      []Point
	reloads    int
	cookies    []Cookie
	handlers   handlerSet
}

// FetchStep is one scripted fetch outcome
type FetchStep struct {
	Result FetchResult
	Err    error
}

// Step is a shorthand for a scripted fetch returning status and body
func Step(status int, body string) FetchStep {
	return FetchStep{Result: FetchResult{Status: status, Body: []byte(body)}}
}

// Navigate records url
func (f *FakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return f.NavigateErr
}

// Title returns the scripted title and advances the poll counter
func (f *FakePage) Title(ctx context.Context) (string, error) {
	f.mu.Lock()
	n := f.titleCalls
	f.titleCalls++
	f.mu.Unlock()
	if f.TitleFunc == nil {
		return "", ctx.Err()
	}
	return f.TitleFunc(n), ctx.Err()
}

// Has consults HasFunc for the most recent poll
func (f *FakePage) Has(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	n := f.titleCalls - 1
	f.mu.Unlock()
	if f.HasFunc == nil {
		return false, ctx.Err()
	}
	return f.HasFunc(selector, n), ctx.Err()
}

// Fetch records url and returns the next scripted outcome
func (f *FakePage) Fetch(ctx context.Context, url string) (FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	if err := ctx.Err(); err != nil {
		return FetchResult{}, err
	}
	if f.step >= len(f.Script) {
		return FetchResult{Status: 200, Body: []byte("[]")}, nil
	}
	s := f.Script[f.step]
	f.step++
	return s.Result, s.Err
}

// MoveMouse records the target point
func (f *FakePage) MoveMouse(ctx context.Context, to Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, to)
	return nil
}

// Reload counts reloads
func (f *FakePage) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

// OnResponse registers a handler reachable through Emit
func (f *FakePage) OnResponse(match func(string) bool, handler func(Response)) func() {
	return f.handlers.add(match, handler)
}

// Emit delivers resp to every attached handler whose filter matches
func (f *FakePage) Emit(resp Response) {
	for _, h := range f.handlers.matching(resp.URL) {
		h(resp)
	}
}

// Attached reports whether any response handler is registered
func (f *FakePage) Attached() bool {
	return !f.handlers.empty()
}

// SetCookies stores cookies
func (f *FakePage) SetCookies(ctx context.Context, cookies []Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append([]Cookie(nil), cookies...)
	return nil
}

// Cookies returns stored cookies
func (f *FakePage) Cookies(ctx context.Context, urls ...string) ([]Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Cookie(nil), f.cookies...), nil
}

// Navigated returns the urls passed to Navigate
func (f *FakePage) Navigated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.navigated...)
}

// Fetched returns the urls passed to Fetch
func (f *FakePage) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// Moves returns the pointer targets
func (f *FakePage) Moves() []Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Point(nil), f.moves...)
}

// Reloads returns the number of reloads
func (f *FakePage) Reloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

// TitleCalls returns how many times the title was polled
func (f *FakePage) TitleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titleCalls
}
