package redisx

import "fmt"

const ns = "easel:v1"

func KeyPerformanceSummary(performanceID int64) string {
	return fmt.Sprintf("%s:performance:%d:summary", ns, performanceID)
}

func KeyPerformanceList() string {
	return ns + ":performances"
}

// KeyStatsToday is scoped by date so a stale entry from yesterday can never
// answer today's query.
func KeyStatsToday(day string) string {
	return fmt.Sprintf("%s:stats:today:%s", ns, day)
}

func KeyStatsTotals() string {
	return ns + ":stats:totals"
}

// KeyRateLimitPrefix is the limiter namespace; the limiter appends its own
// per-client suffix.
func KeyRateLimitPrefix(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelStatsChanged() string {
	return ns + ":stats:changed"
}
