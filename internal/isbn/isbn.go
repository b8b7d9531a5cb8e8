// Package isbn provides ISBN-10/ISBN-13 pattern scanning, checksum
// validation, and canonicalization, shared by the identifier (scanning a
// document for an ISBN) and the duplicate registry (canonical-ISBN-13
// keying). Pure string/digit handling.
package isbn

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	isbn13Pattern = regexp.MustCompile(`\b(97[89][- ]?\d{1,5}[- ]?\d{1,7}[- ]?\d{1,7}[- ]?\d)\b`)
	isbn10Pattern = regexp.MustCompile(`\b(\d[- ]?\d{1,5}[- ]?\d{1,7}[- ]?\d{1,7}[- ]?[\dXx])\b`)
)

func stripSeparators(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(s)
}

// ValidateISBN13 reports whether s (digits only, length 13) passes the
// ISBN-13 check-digit algorithm (alternating weights 1,3).
func ValidateISBN13(s string) bool {
	s = stripSeparators(s)
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d, err := strconv.Atoi(string(s[i]))
		if err != nil {
			return false
		}
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	check := (10 - sum%10) % 10
	last, err := strconv.Atoi(string(s[12]))
	return err == nil && last == check
}

// ValidateISBN10 reports whether s (digits/X, length 10) passes the
// ISBN-10 check-digit algorithm (weights 10..1, mod 11, X == 10).
func ValidateISBN10(s string) bool {
	s = stripSeparators(s)
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		var d int
		if i == 9 && (s[i] == 'X' || s[i] == 'x') {
			d = 10
		} else {
			v, err := strconv.Atoi(string(s[i]))
			if err != nil {
				return false
			}
			d = v
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

// ToISBN13 converts a validated ISBN-10 to its canonical ISBN-13 form
// (978 prefix, recomputed check digit). Callers must validate the ISBN-10
// first.
func ToISBN13(isbn10 string) string {
	s := stripSeparators(isbn10)
	if len(s) != 10 {
		return ""
	}
	core := "978" + s[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		d, _ := strconv.Atoi(string(core[i]))
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	check := (10 - sum%10) % 10
	return core + strconv.Itoa(check)
}

// Scan finds the first valid ISBN-13 and ISBN-10 in text, returning their
// canonical (digits-only) forms. Either return value may be empty if not
// found.
func Scan(text string) (isbn10, isbn13 string) {
	for _, m := range isbn13Pattern.FindAllString(text, -1) {
		c := stripSeparators(m)
		if ValidateISBN13(c) {
			isbn13 = c
			break
		}
	}
	for _, m := range isbn10Pattern.FindAllString(text, -1) {
		c := stripSeparators(m)
		if len(c) == 10 && ValidateISBN10(c) {
			isbn10 = c
			break
		}
	}
	if isbn13 == "" && isbn10 != "" {
		isbn13 = ToISBN13(isbn10)
	}
	return isbn10, isbn13
}

// Canonical returns the canonical ISBN-13 form used as the duplicate
// Registry key, preferring an already-present ISBN-13 over deriving one
// from an ISBN-10.
func Canonical(isbn10, isbn13 string) string {
	if isbn13 != "" {
		return stripSeparators(isbn13)
	}
	if isbn10 != "" && ValidateISBN10(isbn10) {
		return ToISBN13(isbn10)
	}
	return ""
}
