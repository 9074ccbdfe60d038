// Package forms validates user-submitted form data. Validators collect
// every violation into an itemized message list instead of stopping at the
// first, so callers can show the complete error set in one pass.
package forms

import (
	"regexp"
	"strings"
	"time"

	"fintrack/internal/models"

	"github.com/shopspring/decimal"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[0-9\s\-()]{7,20}$`)

	maxAmount = decimal.NewFromInt(999999999)
	minDate   = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Result is the outcome of validating a form.
type Result struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

func result(errs []string) Result {
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// TransactionForm is the raw input of the transaction create/edit form.
// Amount and Date arrive as strings straight from the request.
type TransactionForm struct {
	Concept string
	Amount  string
	Date    string
	Type    string
}

// UserForm is the raw input of the user-management form. Phone is optional.
type UserForm struct {
	Name  string
	Email string
	Phone string
	Role  string
}

// ValidateTransactionForm checks concept, amount, date and type, and
// returns every violation found.
func ValidateTransactionForm(data TransactionForm) Result {
	var errs []string

	concept := strings.TrimSpace(data.Concept)
	switch {
	case concept == "":
		errs = append(errs, "concept is required")
	case len(concept) < 3:
		errs = append(errs, "concept must be at least 3 characters")
	case len(concept) > 100:
		errs = append(errs, "concept cannot be longer than 100 characters")
	}

	if strings.TrimSpace(data.Amount) == "" {
		errs = append(errs, "amount is required")
	} else if amount, err := decimal.NewFromString(strings.TrimSpace(data.Amount)); err != nil {
		errs = append(errs, "amount must be a valid number")
	} else if amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than 0")
	} else if amount.GreaterThan(maxAmount) {
		errs = append(errs, "amount cannot be greater than 999,999,999")
	}

	if strings.TrimSpace(data.Date) == "" {
		errs = append(errs, "date is required")
	} else if date, err := ParseDate(data.Date); err != nil {
		errs = append(errs, "date must be a valid date")
	} else {
		maxDate := time.Now().AddDate(1, 0, 0)
		if date.After(maxDate) {
			errs = append(errs, "date cannot be more than 1 year in the future")
		}
		if date.Before(minDate) {
			errs = append(errs, "date cannot be before 1900")
		}
	}

	if data.Type == "" {
		errs = append(errs, "transaction type is required")
	} else if !models.TransactionType(data.Type).Valid() {
		errs = append(errs, "type must be INCOME or EXPENSE")
	}

	return result(errs)
}

// ValidateUserForm checks name, email, optional phone and role.
func ValidateUserForm(data UserForm) Result {
	var errs []string

	name := strings.TrimSpace(data.Name)
	switch {
	case name == "":
		errs = append(errs, "name is required")
	case len(name) < 2:
		errs = append(errs, "name must be at least 2 characters")
	case len(name) > 50:
		errs = append(errs, "name cannot be longer than 50 characters")
	}

	if data.Email == "" {
		errs = append(errs, "email is required")
	} else if !emailPattern.MatchString(data.Email) {
		errs = append(errs, "email must be a valid address")
	} else if len(data.Email) > 100 {
		errs = append(errs, "email cannot be longer than 100 characters")
	}

	if phone := strings.TrimSpace(data.Phone); phone != "" {
		if !phonePattern.MatchString(phone) {
			errs = append(errs, "phone must be a valid phone number")
		}
	}

	if data.Role == "" {
		errs = append(errs, "role is required")
	} else if !models.Role(data.Role).Valid() {
		errs = append(errs, "role must be USER or ADMIN")
	}

	return result(errs)
}

// IsValidEmail reports whether email is an RFC-light valid address of at
// most 100 characters. Consecutive dots are rejected.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > 100 {
		return false
	}
	if strings.Contains(email, "..") {
		return false
	}
	return emailPattern.MatchString(email)
}

// ValidatePassword checks password strength. It is a provided utility
// with no caller in the login flow; GitHub OAuth is the only login path.
func ValidatePassword(password string) Result {
	var errs []string

	if password == "" {
		return result([]string{"password is required"})
	}
	if len(password) < 8 {
		errs = append(errs, "password must be at least 8 characters")
	}
	if len(password) > 128 {
		errs = append(errs, "password cannot be longer than 128 characters")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		errs = append(errs, "password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		errs = append(errs, "password must contain at least one lowercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		errs = append(errs, "password must contain at least one digit")
	}
	if !strings.ContainsAny(password, `!@#$%^&*(),.?":{}|<>`) {
		errs = append(errs, "password must contain at least one special character")
	}

	return result(errs)
}

// ParseDate parses a form date, either "2006-01-02" or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
