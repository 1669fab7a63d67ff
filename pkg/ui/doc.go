// Package ui holds the plain terminal output used by the CLI: colored
// print helpers, the scrape progress line and desktop notifications.
// The interactive predictor lives in the tui subpackage.
package ui
