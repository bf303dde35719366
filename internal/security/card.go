package security

import (
	"errors"
	"strings"
)

// Card number bounds (ISO/IEC 7812).
const (
	MinCardDigits = 12
	MaxCardDigits = 19
)

// ErrInvalidCard is returned for numbers that fail format or Luhn checks.
var ErrInvalidCard = errors.New("invalid card number")

// CardBrand identifies the issuing network.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandDiscover   CardBrand = "discover"
	BrandJCB        CardBrand = "jcb"
	BrandUnknown    CardBrand = "unknown"
)

// CardCheck is the result of validating a card number.
type CardCheck struct {
	Valid  bool      `json:"valid"`
	Brand  CardBrand `json:"brand"`
	Masked string    `json:"masked"`
}

// NormalizeDigits strips spaces and dashes. It returns false on any other non-digit.
func NormalizeDigits(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return "", false
		}
	}
	return b.String(), true
}

// Luhn reports whether digits passes the mod-10 checksum.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// DetectBrand guesses the network from the IIN prefix.
func DetectBrand(digits string) CardBrand {
	switch {
	case strings.HasPrefix(digits, "4"):
		return BrandVisa
	case hasPrefixRange(digits, 2, 51, 55), hasPrefixRange(digits, 4, 2221, 2720):
		return BrandMastercard
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return BrandAmex
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"), hasPrefixRange(digits, 3, 644, 649):
		return BrandDiscover
	case hasPrefixRange(digits, 4, 3528, 3589):
		return BrandJCB
	default:
		return BrandUnknown
	}
}

func hasPrefixRange(digits string, n, lo, hi int) bool {
	if len(digits) < n {
		return false
	}
	v := 0
	for i := 0; i < n; i++ {
		v = v*10 + int(digits[i]-'0')
	}
	return v >= lo && v <= hi
}

// MaskTail keeps the last four characters visible.
func MaskTail(digits string) string {
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// CheckCard validates a raw card number.
func CheckCard(number string) CardCheck {
	digits, ok := NormalizeDigits(number)
	if !ok || len(digits) < MinCardDigits || len(digits) > MaxCardDigits {
		return CardCheck{Valid: false, Brand: BrandUnknown}
	}
	return CardCheck{
		Valid:  Luhn(digits),
		Brand:  DetectBrand(digits),
		Masked: MaskTail(digits),
	}
}

// CardToken is a non-reversible reference to a card number.
type CardToken struct {
	Token  string    `json:"token"`
	Brand  CardBrand `json:"brand"`
	Masked string    `json:"masked"`
}

// Tokenize derives a deterministic token from a valid card number.
// The same number always yields the same token under the same key.
func (c *Cipher) Tokenize(number string) (*CardToken, error) {
	check := CheckCard(number)
	if !check.Valid {
		return nil, ErrInvalidCard
	}
	digits, _ := NormalizeDigits(number)
	return &CardToken{
		Token:  "tok_" + c.Hash(digits)[:24],
		Brand:  check.Brand,
		Masked: check.Masked,
	}, nil
}
