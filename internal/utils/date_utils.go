package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/vertretungsanalyse/internal/core"
	"go.uber.org/zap"
)

// weekdayAbbreviations maps time.Weekday (Sunday = 0) to the German abbreviation
var weekdayAbbreviations = [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

const datePattern = `\d{1,2}\.\d{1,2}\.\d{4}`

// dateOrRange matches a date range or, failing that, a single date. The range
// alternative comes first so a range is never split into two single dates.
var dateOrRange = regexp.MustCompile(`(` + datePattern + `-` + datePattern + `)|` + datePattern)

// DateFormatter annotates DD.MM.YYYY dates with their weekday abbreviation
type DateFormatter struct {
	logger *zap.Logger
}

// NewDateFormatter creates a new DateFormatter
func NewDateFormatter(logger *zap.Logger) *DateFormatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DateFormatter{
		logger: logger,
	}
}

// FormatDateWithWeekday returns "DD.MM.YYYY (Xx)" for a valid date and the
// input unchanged for anything else
func (f *DateFormatter) FormatDateWithWeekday(dateString string) (formatted string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("Error formatting date", zap.String("date", dateString), zap.Any("panic", r))
			formatted = dateString
		}
	}()

	weekday, err := weekdayOf(dateString)
	if err != nil {
		f.logger.Debug("Date left unannotated", zap.String("date", dateString), zap.Error(err))
		return dateString
	}

	return fmt.Sprintf("%s (%s)", dateString, weekdayAbbreviations[weekday])
}

// FormatDateRangeWithWeekdays annotates both ends of "A-B". Input without a
// hyphen is formatted as a single date.
func (f *DateFormatter) FormatDateRangeWithWeekdays(dateRange string) (formatted string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("Error formatting date range", zap.String("range", dateRange), zap.Any("panic", r))
			formatted = dateRange
		}
	}()

	if !strings.Contains(dateRange, "-") {
		return f.FormatDateWithWeekday(dateRange)
	}

	parts := strings.Split(dateRange, "-")
	if len(parts) != 2 {
		f.logger.Warn("Error formatting date range", zap.String("range", dateRange), zap.Int("parts", len(parts)))
		return dateRange
	}

	startDate := strings.TrimSpace(parts[0])
	endDate := strings.TrimSpace(parts[1])
	return f.FormatDateWithWeekday(startDate) + "-" + f.FormatDateWithWeekday(endDate)
}

// AnnotateText rewrites every date range and date in text. Dates that already
// carry a weekday suffix are left as they are.
func (f *DateFormatter) AnnotateText(text string) string {
	matches := dateOrRange.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*5)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		b.WriteString(text[last:start])
		match := text[start:end]
		annotated := hasWeekdaySuffix(text[end:])

		switch {
		case m[2] >= 0 && annotated:
			// The end date is already annotated, only the start date needs it
			sep := strings.Index(match, "-")
			b.WriteString(f.FormatDateWithWeekday(match[:sep]))
			b.WriteString(match[sep:])
		case m[2] >= 0:
			b.WriteString(f.FormatDateRangeWithWeekdays(match))
		case annotated:
			b.WriteString(match)
		default:
			b.WriteString(f.FormatDateWithWeekday(match))
		}
		last = end
	}
	b.WriteString(text[last:])

	return b.String()
}

// weekdayOf parses DD.MM.YYYY and returns its weekday
func weekdayOf(dateString string) (time.Weekday, error) {
	parts := strings.Split(dateString, ".")
	if len(parts) != 3 {
		return 0, core.ErrFormatMismatch
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts[2]) != 4 {
		return 0, core.ErrFormatMismatch
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid day: %w", err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid month: %w", err)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid year: %w", err)
	}

	date := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	if date.Day() != day || int(date.Month()) != month || date.Year() != year {
		return 0, ErrInvalidDate
	}

	return date.Weekday(), nil
}

// hasWeekdaySuffix reports whether rest starts with " (Xx)"
func hasWeekdaySuffix(rest string) bool {
	if len(rest) < 5 || rest[0] != ' ' || rest[1] != '(' || rest[4] != ')' {
		return false
	}
	abbrev := rest[2:4]
	for _, w := range weekdayAbbreviations {
		if w == abbrev {
			return true
		}
	}
	return false
}
