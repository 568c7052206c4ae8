package npi

import "strings"

// issuerPrefix is the card issuer identifier prepended to an NPI before the
// Luhn check.
const issuerPrefix = "80840"

// Length is the number of digits in an NPI.
const Length = 10

// Validate runs the local checks: ErrInvalidFormat unless candidate is exactly
// ten ASCII digits, then ErrInvalidChecksum unless the check digit holds.
func Validate(candidate string) error {
	if !isDigits(candidate, Length) {
		return ErrInvalidFormat
	}
	if !ValidChecksum(candidate) {
		return ErrInvalidChecksum
	}
	return nil
}

// ValidChecksum reports whether a ten-digit candidate satisfies Luhn mod 10
// over the 80840-prefixed string. Malformed input is never valid.
func ValidChecksum(candidate string) bool {
	if !isDigits(candidate, Length) {
		return false
	}
	return luhnSum(issuerPrefix+candidate, false)%10 == 0
}

// CheckDigit computes the tenth digit for the first nine digits of an NPI.
func CheckDigit(first9 string) (byte, error) {
	if !isDigits(first9, Length-1) {
		return 0, ErrInvalidFormat
	}
	sum := luhnSum(issuerPrefix+first9, true)
	return byte('0' + (10-sum%10)%10), nil
}

// luhnSum walks digits right to left, doubling every second one. When
// payloadOnly is set the rightmost digit is treated as the one next to a
// missing check digit, so it is doubled.
func luhnSum(digits string, payloadOnly bool) int {
	sum := 0
	double := payloadOnly
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
