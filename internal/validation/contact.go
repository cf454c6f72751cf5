package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidEmail = errors.New("invalid email address")
)

var (
	phoneSeparators = regexp.MustCompile(`[\s\-\.\(\)]`)
	spanishLocal    = regexp.MustCompile(`^[6789][0-9]{8}$`)
	e164            = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	emailPattern    = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
)

// NormalizePhone returns the number in E.164 form. Nine digit numbers starting
// with 6, 7, 8 or 9 are taken as Spanish and get the +34 prefix.
func NormalizePhone(s string) (string, error) {
	p := phoneSeparators.ReplaceAllString(strings.TrimSpace(s), "")
	if strings.HasPrefix(p, "00") {
		p = "+" + p[2:]
	}
	if spanishLocal.MatchString(p) {
		p = "+34" + p
	}
	if strings.HasPrefix(p, "+34") && !spanishLocal.MatchString(p[3:]) {
		return "", ErrInvalidPhone
	}
	if !e164.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

func NormalizeEmail(s string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(s))
	if len(e) > 254 || strings.Contains(e, "..") {
		return "", ErrInvalidEmail
	}
	if !emailPattern.MatchString(e) {
		return "", ErrInvalidEmail
	}
	local := e[:strings.IndexByte(e, '@')]
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || len(local) > 64 {
		return "", ErrInvalidEmail
	}
	return e, nil
}
