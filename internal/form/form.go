// Package form validates submitted form values with small composable rules
// attached per field name.
package form

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Values holds submitted form fields by name.
type Values map[string]string

func (v Values) Get(name string) string {
	return v[name]
}

// Rule checks one field. It returns a message when the value is rejected.
type Rule func(value string, all Values) string

// Rules maps field names to the rules applied to them, in order. The first
// failing rule of a field wins.
type Rules map[string][]Rule

// Errors maps field names to their messages.
type Errors map[string][]string

// Validate applies rules to values and returns nil when every field passes.
func (r Rules) Validate(values Values) Errors {
	var errs Errors
	for field, rules := range r {
		for _, rule := range rules {
			if msg := rule(values[field], values); msg != "" {
				errs = errs.Add(field, msg)
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Add records msg for field and returns the (possibly allocated) map.
func (e Errors) Add(field, msg string) Errors {
	if e == nil {
		e = Errors{}
	}
	e[field] = append(e[field], msg)
	return e
}

// Merge appends every message of other to e.
func (e Errors) Merge(other Errors) Errors {
	for field, msgs := range other {
		for _, msg := range msgs {
			e = e.Add(field, msg)
		}
	}
	return e
}

// Get returns the messages for field.
func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], ", "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func Required() Rule {
	return func(value string, _ Values) string {
		if strings.TrimSpace(value) == "" {
			return "This field is required."
		}
		return ""
	}
}

// Length bounds the number of characters in value.
func Length(min, max int) Rule {
	return func(value string, _ Values) string {
		n := utf8.RuneCountInString(value)
		if n < min || n > max {
			return fmt.Sprintf("Field must be between %d and %d characters long.", min, max)
		}
		return ""
	}
}

func Email() Rule {
	return func(value string, _ Values) string {
		if err := validate.Var(value, "required,email"); err != nil {
			return "Invalid email address."
		}
		return ""
	}
}

// EqualTo requires value to match the field named other.
func EqualTo(other string) Rule {
	return func(value string, all Values) string {
		if value != all[other] {
			return fmt.Sprintf("Field must be equal to %s.", other)
		}
		return ""
	}
}
