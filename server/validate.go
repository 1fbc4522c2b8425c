package server

import "regexp"

// FieldError reports one invalid form field, surfaced inline next to the
// offending input before any data is touched.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSignIn checks login form fields.
func ValidateSignIn(email, password string) []FieldError {
	var errs []FieldError
	if !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Please enter a valid email"})
	}
	if len(password) < 6 {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 6 characters"})
	}
	return errs
}

// ValidateSignUp checks registration form fields.
func ValidateSignUp(email, password, displayName string) []FieldError {
	errs := ValidateSignIn(email, password)
	if displayName == "" {
		errs = append(errs, FieldError{Field: "displayName", Message: "Please enter your name"})
	}
	return errs
}
