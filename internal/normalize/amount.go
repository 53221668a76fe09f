package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is a debit/credit hint carried by the amount text itself.
type Side int

const (
	SideNone Side = iota
	SideDebit
	SideCredit
)

func (s Side) String() string {
	switch s {
	case SideDebit:
		return "DEBIT"
	case SideCredit:
		return "CREDIT"
	default:
		return ""
	}
}

// Amount is a parsed money cell. Value is never negative; a minus sign,
// parentheses or a Dr marker are reported through Side instead.
type Amount struct {
	Value   decimal.Decimal
	Side    Side
	Present bool
}

// IsPositive reports whether the amount is present and non-zero.
func (a Amount) IsPositive() bool {
	return a.Present && a.Value.IsPositive()
}

// Signed returns the value negated when the text marked it as a debit.
func (a Amount) Signed() decimal.Decimal {
	if a.Side == SideDebit {
		return a.Value.Neg()
	}
	return a.Value
}

var (
	sideMarkerSuffix = regexp.MustCompile(`(?i)\s*(dr|cr)\.?$`)
	sideMarkerPrefix = regexp.MustCompile(`(?i)^(dr|cr)\.?\s*`)
	numericBody      = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

	// Longest first so "RS." is removed before "RS".
	currencyTokens = []string{"INR", "RS.", "RS", "₹", "$", "£", "€"}
)

// ParseAmount converts strings like "1,25,000.00", "(1,250.00)", "₹ 500 Dr"
// or "-42" into an Amount. Empty cells return a zero Amount with Present=false.
func ParseAmount(s string) (Amount, error) {
	s = CleanText(s)
	if s == "" || s == "-" {
		return Amount{}, nil
	}

	raw := s
	s = strings.ToUpper(s)
	side := SideNone

	if m := sideMarkerSuffix.FindStringSubmatch(s); m != nil {
		side = markerSide(m[1])
		s = s[:len(s)-len(m[0])]
	} else if m := sideMarkerPrefix.FindStringSubmatch(s); m != nil {
		side = markerSide(m[1])
		s = s[len(m[0]):]
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	if s == "" {
		if side != SideNone || negative {
			return Amount{}, fmt.Errorf("amount %q has no digits", raw)
		}
		return Amount{}, nil
	}
	if !numericBody.MatchString(s) {
		return Amount{}, fmt.Errorf("amount %q is not a number", raw)
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("amount %q: %w", raw, err)
	}

	if side == SideNone && negative {
		side = SideDebit
	}

	return Amount{Value: value.Abs(), Side: side, Present: true}, nil
}

// ParseSignedAmount parses s and applies the debit marker as a negative sign.
// It is used for running balances, which may legitimately be overdrawn.
func ParseSignedAmount(s string) (decimal.NullDecimal, error) {
	a, err := ParseAmount(s)
	if err != nil || !a.Present {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(a.Signed()), nil
}

// SideIndicator reads a dedicated debit/credit column such as "Dr", "CR",
// "Withdrawal" or "Deposit".
func SideIndicator(s string) Side {
	switch strings.TrimSuffix(strings.ToLower(CleanText(s)), ".") {
	case "dr", "d", "debit", "withdrawal", "w", "wdl", "paid out", "out":
		return SideDebit
	case "cr", "c", "credit", "deposit", "dep", "paid in", "in":
		return SideCredit
	default:
		return SideNone
	}
}

func markerSide(m string) Side {
	if strings.EqualFold(m, "dr") {
		return SideDebit
	}
	return SideCredit
}
