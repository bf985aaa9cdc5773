package peer

// Congestion window parameters. The window bounds unacknowledged reliable
// bytes in flight per connection: additive growth on acknowledgment,
// multiplicative decrease on loss (AIMD), with slow start below ssthresh.
const (
	initialCwnd = 32 * 1024
	maxCwnd     = 512 * 1024
	minCwnd     = 4 * 1024
)

// effectiveWindow returns the current send window in bytes.
func (c *Connection) effectiveWindow() int {
	if c.cwnd < minCwnd {
		return minCwnd
	}
	return c.cwnd
}

// windowHasRoom reports whether a reliable payload of the given size may be
// put in flight now.
func (c *Connection) windowHasRoom(size int) bool {
	return c.rel.inFlight+size <= c.effectiveWindow()
}

// onAckedBytes grows the congestion window: exponentially while below
// ssthresh (slow start), by roughly one segment per round-trip after.
func (c *Connection) onAckedBytes(n int) {
	if n <= 0 {
		return
	}
	mss := c.maxPartSize()
	if c.cwnd < c.ssthresh {
		c.cwnd += n
	} else {
		inc := mss * n / c.cwnd
		if inc < 1 {
			inc = 1
		}
		c.cwnd += inc
	}
	if c.cwnd > maxCwnd {
		c.cwnd = maxCwnd
	}
}

// onLoss shrinks the window after a retransmit timeout or negative
// acknowledgment. Timeouts collapse to the floor; nack-driven loss halves.
func (c *Connection) onLoss(timeout bool) {
	half := c.cwnd / 2
	if half < minCwnd {
		half = minCwnd
	}
	c.ssthresh = half
	if timeout {
		c.cwnd = minCwnd
	} else {
		c.cwnd = half
	}
}
