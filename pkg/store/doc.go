// Package store persists harvest progress: the append-only corpus file and
// the single-token pagination cursor.
//
// Durability is at-least-once. A batch is appended first and the cursor is
// saved second, so a crash between the two replays that batch on the next run
// and the corpus ends up with duplicate lines. Consumers of the corpus are
// expected to tolerate duplicates; nothing here deduplicates them.
package store
