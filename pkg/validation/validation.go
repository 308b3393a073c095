// Package validation holds the field rules applied to account input before
// anything is written.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const PasswordMinLen = 6

var emailRule = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckEmailFormat reports whether email is a well-formed address.
func CheckEmailFormat(email string) bool {
	if len(email) > 254 {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return emailRule.MatchString(email)
}

// NormalizePhone parses phone in the given region's numbering plan and returns
// it in E.164 form, so national and international spellings of one number
// compare equal.
func NormalizePhone(phone, region string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumberForRegion(num, region) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// CheckPhoneNumber reports whether phone is a valid number in the given
// region's national numbering plan.
func CheckPhoneNumber(phone, region string) bool {
	_, ok := NormalizePhone(phone, region)
	return ok
}

// CheckPasswordFormat requires at least PasswordMinLen characters and no whitespace.
func CheckPasswordFormat(password string) bool {
	if len([]rune(password)) < PasswordMinLen {
		return false
	}
	return !strings.ContainsFunc(password, unicode.IsSpace)
}

// Age is the number of whole years between dob and now.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

func CheckAge(dob, now time.Time, min, max int) bool {
	age := Age(dob, now)
	return age >= min && age <= max
}

// NormalizeName trims, collapses inner whitespace and capitalises each word.
func NormalizeName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// OneOf reports whether value is one of allowed.
func OneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
