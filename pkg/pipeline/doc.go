// Package pipeline serializes everything the harvester writes.
//
// The passive listener runs on the browser's event goroutines while the
// paginator runs on the main loop. Neither touches the store directly: both
// send Batch values to a Writer, whose single goroutine appends records,
// moves the cursor toward older ids and keeps the run total.
//
//	w := pipeline.NewWriter(progress, cursor, resume, log)
//	w.Start(ctx)
//	defer w.Close()
//
//	w.Offer(batch)                  // listener, fire and forget
//	totals, err := w.Commit(ctx, b) // paginator, waits for the write
package pipeline
