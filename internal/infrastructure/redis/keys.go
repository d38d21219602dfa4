package redis

import "time"

const (
	// KeyPrefixVisits is the prefix for visit counter keys.
	KeyPrefixVisits = "pagecraft:visits:"
	// allPages is the pseudo page id under which platform-wide counters are kept.
	allPages = "_all"

	dayLayout = "20060102"
)

// TotalKey returns the lifetime counter key for a page. An empty page id selects every page.
func TotalKey(pageID string) string {
	return KeyPrefixVisits + scope(pageID) + ":total"
}

// DayKey returns the per-day counter key for a page on the UTC day containing at.
func DayKey(pageID string, at time.Time) string {
	return KeyPrefixVisits + scope(pageID) + ":day:" + at.UTC().Format(dayLayout)
}

// dayKeys lists the per-day keys covering [since, until], oldest first.
func dayKeys(pageID string, since, until time.Time) []string {
	start := truncateDay(since)
	end := truncateDay(until)
	if end.Before(start) {
		return nil
	}

	var keys []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		keys = append(keys, DayKey(pageID, day))
	}
	return keys
}

func truncateDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func scope(pageID string) string {
	if pageID == "" {
		return allPages
	}
	return pageID
}
