// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"leadtracker_backend/platform/phone"
)

var linkedInURLPattern = regexp.MustCompile(`^https?://([a-z]{2,3}\.)?linkedin\.com/(in|company|pub)/[^\s/?#]+/?(\?[^\s#]*)?$`)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the lead rules registered:
//
//	linkedinurl  external profile URL on linkedin.com (/in, /company or /pub)
//	contact      an email address or a possible phone number
func New() *Validator {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("linkedinurl", validateLinkedInURL)
	_ = v.RegisterValidation("contact", validateContact)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// IsLinkedInURL reports whether s is a LinkedIn profile or company URL.
func IsLinkedInURL(s string) bool {
	return linkedInURLPattern.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// IsContact reports whether s is an email address or a possible phone number.
func IsContact(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "@") {
		addr, err := mail.ParseAddress(trimmed)
		return err == nil && addr.Address == trimmed
	}
	return phone.IsPossible(trimmed)
}

func validateLinkedInURL(fl validator.FieldLevel) bool {
	return IsLinkedInURL(fl.Field().String())
}

func validateContact(fl validator.FieldLevel) bool {
	return IsContact(fl.Field().String())
}
