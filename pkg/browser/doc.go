// Package browser wraps a Chrome session driven over the DevTools protocol.
//
// Session is the go-rod implementation: it launches Chrome with a persistent
// profile directory so cookies and solved checkpoints survive restarts, can
// inject the go-rod/stealth evasions, issues credentialed fetches from inside
// the page, and pumps Network events to registered response handlers.
//
// Consumers depend on the Page interface. FakePage is a scripted Page used by
// the session, capture, paginator and scraper tests.
package browser
