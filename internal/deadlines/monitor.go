// Package deadlines watches application deadlines for postings the reviewer
// accepted or marked maybe, and raises urgency-sorted alerts.
package deadlines

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/scoutworks/jobscout/internal/model"
)

// Urgency classifies how soon a deadline needs attention.
type Urgency string

const (
	UrgencyCritical Urgency = "critical" // 2 days or less
	UrgencyUrgent   Urgency = "urgent"   // 5 days or less
	UrgencyWarning  Urgency = "warning"  // within the warn window
	UrgencyExpired  Urgency = "expired"  // already passed
)

// urgencyOrder sorts alerts most actionable first; expired ones trail.
var urgencyOrder = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyUrgent:   1,
	UrgencyWarning:  2,
	UrgencyExpired:  3,
}

// Alert is one upcoming or missed deadline on a posting of interest.
type Alert struct {
	PostingURL    string         `json:"posting_url"`
	Title         string         `json:"title"`
	Org           string         `json:"org,omitempty"`
	Decision      model.Decision `json:"decision"`
	Deadline      time.Time      `json:"deadline"`
	DeadlineText  string         `json:"deadline_text"`
	DaysRemaining int            `json:"days_remaining"`
	Urgency       Urgency        `json:"urgency"`
	Action        string         `json:"action"`
}

// Monitor extracts deadlines from posting text and classifies them.
type Monitor struct {
	warnDays int
}

// NewMonitor creates a Monitor that starts warning warnDays before a
// deadline.
func NewMonitor(warnDays int) *Monitor {
	if warnDays <= 0 {
		warnDays = 7
	}
	return &Monitor{warnDays: warnDays}
}

// Check scans postings whose latest decision is accept or maybe, extracts a
// deadline from their text, and returns alerts sorted by urgency then days
// remaining. Postings without a recognizable deadline produce no alert.
func (m *Monitor) Check(postings []model.Posting, decisions []model.FeedbackDecision, now time.Time) []Alert {
	latest := model.LatestDecisions(decisions)

	var alerts []Alert
	for _, p := range postings {
		decision, ok := latest[p.URL]
		if !ok || decision == model.DecisionReject {
			continue
		}

		deadline, text, ok := ExtractDeadline(p.Text, now)
		if !ok {
			continue
		}

		days := int(deadline.Sub(now).Hours() / 24)
		a := Alert{
			PostingURL:    p.URL,
			Title:         p.Title,
			Org:           p.Org,
			Decision:      decision,
			Deadline:      deadline,
			DeadlineText:  text,
			DaysRemaining: days,
		}
		switch {
		case days < 0:
			a.Urgency = UrgencyExpired
			a.Action = fmt.Sprintf("deadline passed %d day(s) ago, check if still accepting", -days)
		case days <= 2:
			a.Urgency = UrgencyCritical
			a.Action = fmt.Sprintf("only %d day(s) left, apply now", days)
		case days <= 5:
			a.Urgency = UrgencyUrgent
			a.Action = fmt.Sprintf("apply within %d days", days)
		case days <= m.warnDays:
			a.Urgency = UrgencyWarning
			a.Action = fmt.Sprintf("deadline approaching in %d days", days)
		default:
			continue
		}
		alerts = append(alerts, a)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if urgencyOrder[alerts[i].Urgency] != urgencyOrder[alerts[j].Urgency] {
			return urgencyOrder[alerts[i].Urgency] < urgencyOrder[alerts[j].Urgency]
		}
		return alerts[i].DaysRemaining < alerts[j].DaysRemaining
	})
	return alerts
}

var monthNums = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	// A date only counts as a deadline when it follows an application cue;
	// posting text is full of unrelated dates (start dates, founding years).
	cueRe = regexp.MustCompile(`(?i)(?:deadline|closing date|apply by|applications? close[sd]?|apply before|closes on)[:\s]*`)

	dayMonthYearRe = regexp.MustCompile(`(?i)^.{0,40}?(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlt + `)\s+(\d{4})`)
	monthDayYearRe = regexp.MustCompile(`(?i)^.{0,40}?(` + monthAlt + `)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)
	numericRe      = regexp.MustCompile(`^.{0,40}?(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
	isoRe          = regexp.MustCompile(`^.{0,40}?(\d{4})-(\d{2})-(\d{2})`)
	dayMonthRe     = regexp.MustCompile(`(?i)^.{0,40}?(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlt + `)`)
)

// ExtractDeadline finds an application deadline in posting text. It looks
// for a date within a short span after a cue phrase such as "deadline" or
// "apply by". A day-and-month date without a year resolves to the next
// occurrence relative to now.
func ExtractDeadline(text string, now time.Time) (time.Time, string, bool) {
	loc := cueRe.FindStringIndex(text)
	if loc == nil {
		return time.Time{}, "", false
	}
	rest := text[loc[1]:]

	if m := dayMonthYearRe.FindStringSubmatch(rest); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, monthNums[strings.ToLower(m[2])], day); ok {
			return d, m[0], true
		}
	}
	if m := monthDayYearRe.FindStringSubmatch(rest); m != nil {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, monthNums[strings.ToLower(m[1])], day); ok {
			return d, m[0], true
		}
	}
	// DD/MM/YYYY; postings here use day-first ordering.
	if m := numericRe.FindStringSubmatch(rest); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 {
			if d, ok := makeDate(year, time.Month(month), day); ok {
				return d, m[0], true
			}
		}
	}
	if m := isoRe.FindStringSubmatch(rest); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 {
			if d, ok := makeDate(year, time.Month(month), day); ok {
				return d, m[0], true
			}
		}
	}
	if m := dayMonthRe.FindStringSubmatch(rest); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNums[strings.ToLower(m[2])]
		if d, ok := makeDate(now.Year(), month, day); ok {
			// A yearless date more than a month in the past means next year.
			if d.Before(now.AddDate(0, 0, -30)) {
				d = d.AddDate(1, 0, 0)
			}
			return d, m[0], true
		}
	}
	return time.Time{}, "", false
}

// makeDate builds a UTC date, rejecting impossible day-of-month values that
// time.Date would silently normalize.
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
