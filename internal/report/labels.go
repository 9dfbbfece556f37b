package report

import (
	"strings"
	"time"
)

// Labels carries the reporting-period month and year names used in titles,
// file names, and template placeholders.
type Labels struct {
	Month string
	Year  string
}

// TimeLabel is the combined "June 2025" form.
func (l Labels) TimeLabel() string { return l.Month + " " + l.Year }

// ResolveLabels derives the reporting-period labels. The default period is 30
// days before now, which lands in the prior month for the first-of-month runs
// this tool is scheduled on. Either label can be overridden explicitly.
func ResolveLabels(monthOverride, yearOverride string, now time.Time) Labels {
	ref := now.AddDate(0, 0, -30)
	l := Labels{
		Month: ref.Format("January"),
		Year:  ref.Format("2006"),
	}
	if monthOverride != "" {
		l.Month = monthOverride
	}
	if yearOverride != "" {
		l.Year = yearOverride
	}
	return l
}

// FormatTitle expands the {time_label} and {status_label} placeholders in a
// configured title template.
func FormatTitle(tpl string, labels Labels, statusLabel string) string {
	out := strings.ReplaceAll(tpl, "{time_label}", labels.TimeLabel())
	out = strings.ReplaceAll(out, "{status_label}", statusLabel)
	return out
}
