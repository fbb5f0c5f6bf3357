// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy defines requirements for the seeded admin password.
type PasswordPolicy struct {
	// MinLength is the minimum password length in bytes
	MinLength int

	// MinCharClasses is how many of upper, lower, digit and special must appear
	MinCharClasses int

	// MaxConsecutiveRepeats is the maximum run of one character (0 = disabled)
	MaxConsecutiveRepeats int

	// ForbidCommonPasswords blocks well-known breached passwords
	ForbidCommonPasswords bool

	// ForbidEmailSimilarity rejects passwords built from the account email
	ForbidEmailSimilarity bool
}

// DefaultPasswordPolicy returns the policy applied to ADMIN_PASSWORD.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:             12,
		MinCharClasses:        3,
		MaxConsecutiveRepeats: 3,
		ForbidCommonPasswords: true,
		ForbidEmailSimilarity: true,
	}
}

// Validate checks password against the policy. All violations are joined
// into one error.
func (p PasswordPolicy) Validate(password, email string) error {
	var problems []string

	if len(password) < p.MinLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters (got %d)", p.MinLength, len(password)))
	}
	if classes := countCharClasses(password); classes < p.MinCharClasses {
		problems = append(problems, fmt.Sprintf(
			"must mix at least %d of uppercase, lowercase, digits and symbols (got %d)", p.MinCharClasses, classes))
	}
	if p.MaxConsecutiveRepeats > 0 && longestRun(password) > p.MaxConsecutiveRepeats {
		problems = append(problems, fmt.Sprintf("cannot repeat a character more than %d times in a row", p.MaxConsecutiveRepeats))
	}
	if p.ForbidCommonPasswords && isCommonPassword(password) {
		problems = append(problems, "is too common and easily guessable")
	}
	if p.ForbidEmailSimilarity && email != "" && isSimilarToEmail(password, email) {
		problems = append(problems, "is too similar to the account email")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("password " + strings.Join(problems, "; "))
}

func countCharClasses(password string) int {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	n := 0
	for _, present := range []bool{upper, lower, digit, special} {
		if present {
			n++
		}
	}
	return n
}

func longestRun(password string) int {
	longest, current := 0, 0
	var last rune
	for i, r := range password {
		if i > 0 && r == last {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
		last = r
	}
	return longest
}

// commonPasswords holds breached passwords that meet the length rule on
// their own, plus their obvious stems.
var commonPasswords = map[string]struct{}{
	"password":       {},
	"password1":      {},
	"password123":    {},
	"password1234":   {},
	"passw0rd":       {},
	"p@ssw0rd":       {},
	"p@ssword123":    {},
	"admin":          {},
	"admin123":       {},
	"administrator":  {},
	"adminadmin123":  {},
	"letmein":        {},
	"welcome":        {},
	"welcome123":     {},
	"welcome@123":    {},
	"qwerty":         {},
	"qwerty123":      {},
	"qwertyuiop":     {},
	"qwerty123456":   {},
	"1q2w3e4r5t6y":   {},
	"123456789012":   {},
	"1234567890":     {},
	"iloveyou":       {},
	"sunshine":       {},
	"trustno1":       {},
	"changeme":       {},
	"changeme123":    {},
	"secret":         {},
	"secret123":      {},
	"default":        {},
	"trackrelay":     {},
	"trackrelay123":  {},
	"trackrelay1234": {},
}

// isCommonPassword matches case-insensitively and ignores trailing digits
// and symbols appended to a known password.
func isCommonPassword(password string) bool {
	lower := strings.ToLower(password)
	if _, ok := commonPasswords[lower]; ok {
		return true
	}
	stem := strings.TrimRightFunc(lower, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	_, ok := commonPasswords[stem]
	return ok && stem != ""
}

// isSimilarToEmail reports whether the password contains the email's local
// part, or the local part contains the password.
func isSimilarToEmail(password, email string) bool {
	local := strings.ToLower(email)
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	if len(local) < 3 {
		return false
	}
	lower := strings.ToLower(password)
	return strings.Contains(lower, local) || strings.Contains(local, lower)
}
