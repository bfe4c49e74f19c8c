package reference

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeRe = regexp.MustCompile(`(\d+)\s*(minute|min|hour|hr|day|week|month)`)

// ParseRelativeTime переводит «N minutes/hours/days ago» в момент времени относительно now.
// Месяц считается равным 30 дням.
func ParseRelativeTime(text string, now time.Time) (time.Time, bool) {
	m := relativeRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return time.Time{}, false
	}
	val, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	now = now.UTC().Truncate(time.Second)
	switch m[2] {
	case "minute", "min":
		return now.Add(-time.Duration(val) * time.Minute), true
	case "hour", "hr":
		return now.Add(-time.Duration(val) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -val), true
	case "week":
		return now.AddDate(0, 0, -7*val), true
	case "month":
		return now.AddDate(0, 0, -30*val), true
	}
	return time.Time{}, false
}

// FallbackPublished возвращает условное время для сюжета без даты:
// чем ниже сюжет в рубрике, тем раньше он считается опубликованным.
func FallbackPublished(now time.Time, position int) time.Time {
	offset := 30 + position*15
	return now.UTC().Truncate(time.Second).Add(-time.Duration(offset) * time.Minute)
}
