// Package core holds the bill domain: the record itself, status labelling,
// form-value parsing and display-date formatting.
package core

import (
	"fmt"
	"time"
)

// BillDateFormat is the wire format of a bill date (ISO-like, date only).
const BillDateFormat = "2006-01-02"

// French month abbreviations, three characters, capitalized. June and July
// both shorten to "Jui"; the original display format has the same collision.
var frenchMonths = [...]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

// FormatDisplayDate renders a raw YYYY-MM-DD date in the localized short form
// shown in bill listings, e.g. "2004-04-04" becomes "4 Avr. 04". It returns
// an error when the raw value does not parse; callers keep the raw string in
// that case instead of failing.
func FormatDisplayDate(raw string) (string, error) {
	t, err := time.Parse(BillDateFormat, raw)
	if err != nil {
		return "", fmt.Errorf("parse bill date %q: %w", raw, err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), frenchMonths[t.Month()-1], t.Year()%100), nil
}
