package scheduler

import "time"

// InCooldown reports whether an alert that last triggered at the given
// time is still inside its cooldown window. An alert that has never
// triggered is never in cooldown. The comparison is strict: an alert
// whose cooldown has elapsed exactly is eligible again.
func InCooldown(lastTriggeredAt *time.Time, cooldownHours float64, now time.Time) bool {
	if lastTriggeredAt == nil || cooldownHours <= 0 {
		return false
	}
	elapsed := now.Sub(*lastTriggeredAt).Seconds()
	return elapsed < cooldownHours*3600
}
