package service

import "time"

// DefaultRatePerHour is the reference parking tariff in major currency units.
const DefaultRatePerHour int64 = 10

// ChargeFor returns the charge for the given number of minutes at
// ratePerHour.  Partial hours are always rounded up so the customer is never
// undercharged: ceil(minutes/60 * rate), computed in integers.
func ChargeFor(minutes, ratePerHour int64) int64 {
	if minutes <= 0 || ratePerHour <= 0 {
		return 0
	}
	return (minutes*ratePerHour + 59) / 60
}

// ElapsedMinutes returns the whole number of minutes between entry and exit,
// rounding any started minute up.  A negative span yields zero.
func ElapsedMinutes(entry, exit time.Time) int64 {
	d := exit.Sub(entry)
	if d <= 0 {
		return 0
	}
	return int64((d + time.Minute - 1) / time.Minute)
}
