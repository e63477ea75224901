package analytics

import (
	"golang.org/x/text/language"
)

var (
	supportedLocales = []language.Tag{language.Indonesian, language.English}
	localeMatcher    = language.NewMatcher(supportedLocales)

	shortMonths = [][12]string{
		{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"},
		{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	}
)

// MonthLabels names months in one of the supported locales.
type MonthLabels struct {
	tag   language.Tag
	names [12]string
}

// NewMonthLabels picks the closest supported locale for a BCP 47 list such as
// "id", "en-US" or "en;q=0.8, id". Anything unrecognized falls back to Indonesian.
func NewMonthLabels(locale string) MonthLabels {
	_, i := language.MatchStrings(localeMatcher, locale)
	return MonthLabels{tag: supportedLocales[i], names: shortMonths[i]}
}

// Short returns the abbreviated name of month 1-12.
func (l MonthLabels) Short(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return l.names[month-1]
}

func (l MonthLabels) Locale() string {
	return l.tag.String()
}
