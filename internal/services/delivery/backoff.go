package delivery

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// jitteredBackOff yields min(base*2^n, cap) * (1 + U[0, jitter)) for the
// n-th retry.
type jitteredBackOff struct {
	base    time.Duration
	cap     time.Duration
	jitter  float64
	rand    func() float64
	attempt int
}

var _ backoff.BackOff = (*jitteredBackOff)(nil)

func newJitteredBackOff(base, maxDelay time.Duration, jitter float64, rand func() float64) *jitteredBackOff {
	return &jitteredBackOff{base: base, cap: maxDelay, jitter: jitter, rand: rand}
}

// NextBackOff implements backoff.BackOff.
func (b *jitteredBackOff) NextBackOff() time.Duration {
	d := BaseDelay(b.base, b.cap, b.attempt)
	b.attempt++
	return time.Duration(float64(d) * (1 + b.rand()*b.jitter))
}

// Reset implements backoff.BackOff.
func (b *jitteredBackOff) Reset() {
	b.attempt = 0
}

// BaseDelay returns min(base*2^n, cap) without jitter.
func BaseDelay(base, maxDelay time.Duration, n int) time.Duration {
	d := float64(base) * math.Pow(2, float64(n))
	if maxDelay > 0 && d > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}
