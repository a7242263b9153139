package utils

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ttacon/libphonenumber"
)

var CountryCode = "IN"

// NormalizeMobile returns the national significant number of a mobile number
// ("+91 98765-43210" -> "9876543210"). Unparseable input falls back to its digits.
func NormalizeMobile(mobile string) string {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return ""
	}
	p, err := libphonenumber.Parse(mobile, CountryCode)
	if err == nil {
		return strconv.FormatUint(p.GetNationalNumber(), 10)
	}
	return DigitsOnly(mobile)
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
