// Package truthsocial describes the source timeline API: URL construction for
// cursor-paginated account pages and decoding of the status list they return.
//
// Pages are requested newest first with a max_id cursor:
//
//	u := truthsocial.TimelineURL(truthsocial.BaseURL, "107780257626128497", cursor, 40)
//	statuses, err := truthsocial.ParseStatuses(body)
//	next := truthsocial.Oldest(statuses)
//
// The API treats max_id as opaque, but status ids are decimal snowflakes:
// a shorter id is older, and ids of equal length order lexically. The
// cursor store relies on this to keep the cursor moving back in time, and
// the paginator ends the run when a full page fails to move it. If the
// source ever switched to non-numeric ids, every page would look stale and
// runs would end after the first page.
package truthsocial
