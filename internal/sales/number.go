package sales

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultNumberTemplate yields numbers such as INV-20240131-000042.
const DefaultNumberTemplate = "INV-{YYYY}{MM}{DD}-{SEQ6}"

var numberToken = regexp.MustCompile(`\{([A-Z]+)(\d*)\}`)

// FormatInvoiceNumber expands a number template for an issue date and a
// positive sequence value. Supported tokens are {YYYY}, {YY}, {MM}, {DD},
// {SEQ} and {SEQn}, the latter zero-padding the sequence to n digits.
func FormatInvoiceNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	var unknown []string
	out := numberToken.ReplaceAllStringFunc(template, func(tok string) string {
		m := numberToken.FindStringSubmatch(tok)
		name, width := m[1], m[2]
		switch {
		case name == "YYYY" && width == "":
			return issuedAt.Format("2006")
		case name == "YY" && width == "":
			return issuedAt.Format("06")
		case name == "MM" && width == "":
			return issuedAt.Format("01")
		case name == "DD" && width == "":
			return issuedAt.Format("02")
		case name == "SEQ" && width == "":
			return strconv.FormatInt(seq, 10)
		case name == "SEQ":
			n, err := strconv.Atoi(width)
			if err == nil && n > 0 && n <= 18 {
				return fmt.Sprintf("%0*d", n, seq)
			}
		}
		unknown = append(unknown, tok)
		return tok
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unknown invoice number token %s", strings.Join(unknown, ", "))
	}
	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice number template %q", template)
	}
	return out, nil
}
