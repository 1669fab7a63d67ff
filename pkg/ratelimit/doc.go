// Package ratelimit paces the paginator's in-page fetches.
//
// The minimum interval is enforced with a golang.org/x/time/rate limiter
// (burst 1), and successful pages are followed by a uniformly random pause:
//
//	pacer := ratelimit.NewPacer(time.Second, time.Second, 2*time.Second)
//	if err := pacer.Wait(ctx); err != nil {
//	    return err
//	}
//	// fetch a page ...
//	pacer.Pause(ctx)
package ratelimit
