package gateway

import (
	"math/rand"
	"time"
)

// retryBackoff returns the delay before retry attempt n (1-based):
// capped exponential growth with full jitter so concurrent clients
// hitting the same overloaded gateway do not retry in lockstep.
// The returned delay falls in [exp/2, exp) where exp = base * 2^(n-1),
// capped at maxDelay.
func retryBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := base
	for i := 1; i < attempt; i++ {
		exp *= 2
		if maxDelay > 0 && exp >= maxDelay {
			exp = maxDelay
			break
		}
	}
	half := exp / 2
	if half <= 0 {
		return exp
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}
