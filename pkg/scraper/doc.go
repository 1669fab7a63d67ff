// Package scraper runs a complete harvest.
//
// A run goes through these steps in order:
//
//  1. Open the progress file and cursor, clearing the cursor on --force-restart.
//  2. Launch Chrome with the persistent profile and inject stored cookies.
//  3. Wait at the profile page until the anti-automation checkpoint clears
//     (or the wait times out, in which case the run continues best-effort).
//  4. Save the browser's cookies back to the vault.
//  5. Attach the passive listener so manual scrolling captures timeline
//     pages for the configured handoff window, then detach it.
//  6. Flush the writer and start the paginator from the writer's cursor.
//
// Every batch from both capture paths goes through one pipeline.Writer, so
// the cursor only ever moves toward older posts.
//
//	s := scraper.New(cfg, scraper.RodLauncher, log).
//	    WithVault(vault).
//	    WithReporter(ui.NewProgressDisplay(cfg.Source.Author, cfg.Paginator.Target, false))
//	report, err := s.Run(ctx, scraper.Options{})
package scraper
