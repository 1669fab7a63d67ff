// Package paginator implements the active capture path.
//
// After handoff the paginator owns the run. Each iteration fetches one
// timeline page older than the cursor from inside the authenticated page and
// classifies the outcome:
//
//	200, posts  commit batch, advance cursor, reset errors and backoff, jitter
//	200, empty  source exhausted, stop
//	429         sleep the escalating backoff (x2, capped)
//	403         pointer move, fixed sleep, error streak +1
//	other       fixed sleep, error streak +1
//
// When the error streak exceeds the threshold the session is degraded: the
// paginator cools down, reloads the page, waits for it to settle and resumes
// with a fresh streak.
package paginator
