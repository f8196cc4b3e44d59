package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9+][0-9\s()-]{9,19}$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
)

// FieldError is a validation failure on a single form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid listing: " + strings.Join(msgs, "; ")
}

// Message returns the message for field, or "" if that field passed.
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// Normalize trims free-text fields, drops blank features and fills the default card type.
func (l *Listing) Normalize() {
	l.Title = strings.TrimSpace(l.Title)
	l.Location.Address = strings.TrimSpace(l.Location.Address)
	l.Location.PostalCode = strings.TrimSpace(l.Location.PostalCode)
	l.Contact.Name = strings.TrimSpace(l.Contact.Name)
	l.Contact.Phone = strings.TrimSpace(l.Contact.Phone)
	l.Contact.Email = strings.TrimSpace(l.Contact.Email)

	features := l.Features[:0:0]
	for _, f := range l.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	l.Features = features

	if l.CardType == "" {
		l.CardType = CardStandard
	}
}

// Validate checks the listing against the submission rules.
// It returns a *ValidationError naming every failing field, or nil.
func (l *Listing) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(l.Title) == "" {
		verr.add("title", "Title is required")
	}
	if strings.TrimSpace(l.Location.Address) == "" {
		verr.add("location.address", "Address is required")
	}
	if !phonePattern.MatchString(l.Contact.Phone) {
		verr.add("contact.phone", "Invalid phone number")
	}
	if !emailPattern.MatchString(l.Contact.Email) {
		verr.add("contact.email", "Invalid email")
	}
	if len(l.Prices) == 0 {
		verr.add("prices", "At least one price is required")
	}
	for i, p := range l.Prices {
		if !(p.Amount > 0) {
			verr.add(fmt.Sprintf("prices[%d].amount", i), "All prices must be greater than 0")
		}
	}
	if l.Deposit != nil && !(*l.Deposit >= 0) {
		verr.add("deposit", "Deposit cannot be negative")
	}
	if l.CardType != "" && !slices.Contains(CardTypes, l.CardType) {
		verr.add("card_type", "Unknown card type")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}
