// Package retry provides delay strategies and a generic retry loop.
//
// ExponentialBackoff and ConstantBackoff are stateless and keyed by attempt
// number; they drive Do, which the classifier uses while a remote model warms
// up. Escalating is the stateful rate-limit delay used by the paginator: it
// doubles on every 429 up to a ceiling and drops to a floor after a success.
//
// All waiting goes through a Sleeper so that callers can substitute a
// recording sleeper in tests:
//
//	var slept []time.Duration
//	cfg := &retry.Config{
//	    MaxAttempts: 3,
//	    Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//	    Sleep: func(ctx context.Context, d time.Duration) error {
//	        slept = append(slept, d)
//	        return nil
//	    },
//	}
package retry
