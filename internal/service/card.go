package service

import "strings"

// CardInput is card data as submitted by a client. Only the masked form is
// ever stored.
type CardInput struct {
	Number     string
	Brand      string
	ExpMonth   int32
	ExpYear    int32
	HolderName string
}

// MaskedCard holds the non-sensitive card fields that may be persisted.
type MaskedCard struct {
	Last4      string
	Brand      string
	ExpMonth   int32
	ExpYear    int32
	HolderName string
}

// Mask drops the PAN, keeping the last four digits and the brand.
func (c CardInput) Mask() MaskedCard {
	digits := onlyDigits(c.Number)
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	brand := strings.TrimSpace(c.Brand)
	if brand == "" {
		brand = detectBrand(digits)
	}
	return MaskedCard{
		Last4:      last4,
		Brand:      brand,
		ExpMonth:   c.ExpMonth,
		ExpYear:    c.ExpYear,
		HolderName: strings.TrimSpace(c.HolderName),
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// detectBrand guesses the card network from the IIN prefix.
func detectBrand(digits string) string {
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "amex"
	case hasPrefixInRange(digits, 2, 51, 55), hasPrefixInRange(digits, 4, 2221, 2720):
		return "mastercard"
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"):
		return "discover"
	case hasPrefixInRange(digits, 4, 3528, 3589):
		return "jcb"
	default:
		return "unknown"
	}
}

func hasPrefixInRange(digits string, n, lo, hi int) bool {
	if len(digits) < n {
		return false
	}
	v := 0
	for _, r := range digits[:n] {
		v = v*10 + int(r-'0')
	}
	return v >= lo && v <= hi
}
