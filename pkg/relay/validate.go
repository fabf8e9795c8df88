package relay

import (
	"errors"
	"regexp"
)

// Validation failures surfaced to callers as 400 reasons. The strings are
// part of the API contract.
var (
	ErrMissingPayload        = errors.New("smtp and mail are required")
	ErrIncompleteCredentials = errors.New("incomplete credentials")
	ErrMissingMailFields     = errors.New("missing email fields")
	ErrPortNotAllowed        = errors.New("SMTP port not allowed")
	ErrInvalidEmailFormat    = errors.New("invalid email format")
)

// emailPattern is deliberately permissive: non-whitespace local part, "@",
// non-whitespace domain containing a dot. Full RFC 5322 validation is out
// of scope; the SMTP server is the authority on deliverability.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail reports whether addr passes the minimal syntactic check.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// ValidateRequest checks a send request before any SMTP session is
// attempted. portAllowed is the configured allow-list predicate. The
// returned error message is safe to surface to the caller verbatim.
func ValidateRequest(smtp *SMTPConfig, mail *Envelope, portAllowed func(int) bool) error {
	if smtp == nil || mail == nil {
		return ErrMissingPayload
	}
	if smtp.Host == "" || smtp.Port == 0 || smtp.User == "" || smtp.Pass == "" {
		return ErrIncompleteCredentials
	}
	if mail.From == "" || mail.To == "" || mail.Subject == "" || mail.Body == "" {
		return ErrMissingMailFields
	}
	if !portAllowed(smtp.Port) {
		return ErrPortNotAllowed
	}
	if !ValidEmail(mail.From) || !ValidEmail(mail.To) {
		return ErrInvalidEmailFormat
	}
	return nil
}
