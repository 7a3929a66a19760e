package aitmpl

import (
	"time"

	"golang.org/x/time/rate"
)

// dualLimiter enforces two independent token buckets, one refilled per
// minute and one per hour, both of which must admit a call before any
// network traffic happens. This is deliberately a local limiter layered
// under whatever limiting the remote catalog applies itself.
type dualLimiter struct {
	minute *rate.Limiter
	hour   *rate.Limiter
}

func newDualLimiter(perMinute, perHour int) *dualLimiter {
	return &dualLimiter{
		minute: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		hour:   rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
	}
}

// admit consumes one token from each bucket, or reports the delay until
// both would admit. Admission never blocks; the caller owns the retry.
func (d *dualLimiter) admit() (time.Duration, bool) {
	now := time.Now()
	rm := d.minute.ReserveN(now, 1)
	rh := d.hour.ReserveN(now, 1)

	delay := rm.DelayFrom(now)
	if hd := rh.DelayFrom(now); hd > delay {
		delay = hd
	}
	if delay > 0 {
		rm.CancelAt(now)
		rh.CancelAt(now)
		return delay, false
	}
	return 0, true
}
