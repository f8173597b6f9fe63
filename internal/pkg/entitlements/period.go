package entitlements

import (
	"fmt"
	"time"
)

// PeriodKey returns the accounting window identifier for a plan at a given
// instant, evaluated in UTC. Free accounts meter per ISO week (YYYY-Www),
// pro accounts per calendar month (YYYY-MM). The key is never stored as
// state; a new key simply addresses a fresh counter.
func PeriodKey(plan Plan, now time.Time) string {
	utc := now.UTC()
	if plan == PlanPro {
		return utc.Format("2006-01")
	}
	year, week := utc.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
