package formschema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks every field descriptor and that field names are unique.
func Validate(s Schema) error {
	seen := make(map[string]bool, len(s))
	for i, f := range s {
		if err := structValidator().Struct(f); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				fe := verrs[0]
				return fmt.Errorf("field %d (%q): %s failed %q", i, f.Name, fe.Field(), fe.Tag())
			}
			return fmt.Errorf("field %d: %w", i, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %d: duplicate name %q", i, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// SubmissionError lists the problems found in a submitted form, keyed by
// field name. Names holds the failing field names in schema order.
type SubmissionError struct {
	Fields map[string]string
	Names  []string
}

func (e *SubmissionError) Error() string {
	names := e.Names
	if len(names) != len(e.Fields) {
		names = slices.Sorted(maps.Keys(e.Fields))
	}
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return "invalid form submission: " + strings.Join(msgs, "; ")
}

// ValidateSubmission checks values against s. A field must be filled when it
// is marked required, or for every field when strict is set, which matches
// forms that do not mark required fields at all.
func ValidateSubmission(s Schema, values map[string]any, strict bool) error {
	errs := &SubmissionError{Fields: map[string]string{}}
	for _, f := range s {
		if !strict && !f.IsRequired() {
			continue
		}
		if isBlank(values[f.Name]) {
			errs.Fields[f.Name] = f.Label + " is required"
			errs.Names = append(errs.Names, f.Name)
		}
	}

	if len(errs.Names) > 0 {
		return errs
	}
	return nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
