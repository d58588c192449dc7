package chatclient

import "time"

// backoffDelay returns the capped-doubling reconnect delay for the
// given zero-based attempt: base, 2*base, 4*base, ... never exceeding
// max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}

	return d
}
