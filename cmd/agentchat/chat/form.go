package chatcmder

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/formschema"
)

// errFormSkipped is returned when the user abandons a form with /skip.
var errFormSkipped = errors.New("form skipped")

// fillForm prompts for each field of s in turn and returns the submission
// values once they pass validation. Blank answers fall back to the field's
// default value, or leave the field unset.
func (c *chatCommander) fillForm(s formschema.Schema) (map[string]any, error) {
	fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Fill in the form. Leave a field blank to skip it, /skip to cancel."))

	values := map[string]any{}
	pending := s
	strict := !anyRequired(s)

	for {
		for _, f := range pending {
			v, err := c.askField(f)
			if err != nil {
				return nil, err
			}
			if v == nil {
				delete(values, f.Name)
				continue
			}
			values[f.Name] = v
		}

		err := formschema.ValidateSubmission(s, values, strict)
		if err == nil {
			return values, nil
		}

		var subErr *formschema.SubmissionError
		if !errors.As(err, &subErr) {
			return nil, err
		}

		fmt.Fprintf(c.out, "  %s %s\n", cliui.FailMark, err)
		pending = slices.DeleteFunc(slices.Clone(s), func(f formschema.Field) bool {
			_, missing := subErr.Fields[f.Name]
			return !missing
		})
	}
}

// askField prompts until the answer for f parses.
func (c *chatCommander) askField(f formschema.Field) (any, error) {
	fmt.Fprintln(c.out, cliui.FieldLine(f))
	for {
		fmt.Fprint(c.out, "    "+cliui.FieldPrompt(f))

		line, ok := c.readLine()
		if !ok {
			return nil, errFormSkipped
		}
		if line == "/skip" {
			return nil, errFormSkipped
		}

		v, err := parseFieldValue(f, line)
		if err != nil {
			fmt.Fprintf(c.out, "    %s %s\n", cliui.FailMark, err)
			continue
		}
		return v, nil
	}
}

// parseFieldValue converts a typed answer into the value submitted for f.
// It returns nil for a blank answer to a field without a default.
func parseFieldValue(f formschema.Field, input string) (any, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return f.DefaultValue, nil
	}

	switch {
	case multiValued(f):
		var picked []string
		for _, part := range strings.Split(input, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			choice, err := pickChoice(f, part)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(picked, choice) {
				picked = append(picked, choice)
			}
		}
		return picked, nil

	case f.Type == formschema.TypeCheckbox || f.Type == formschema.TypeSwitch:
		return parseBool(input)

	case len(f.Values) > 0:
		return pickChoice(f, input)

	default:
		return input, nil
	}
}

func multiValued(f formschema.Field) bool {
	if len(f.Values) == 0 {
		return false
	}
	if f.Multiple != nil {
		return *f.Multiple
	}
	return f.Type == formschema.TypeCheckbox || f.Type == formschema.TypeToggleGroup
}

// pickChoice matches input against f.Values by value, case-insensitively,
// or by 1-based position.
func pickChoice(f formschema.Field, input string) (string, error) {
	for _, v := range f.Values {
		if strings.EqualFold(v, input) {
			return v, nil
		}
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(f.Values) {
		return f.Values[n-1], nil
	}
	return "", fmt.Errorf("%q is not one of %s", input, strings.Join(f.Values, ", "))
}

func parseBool(input string) (bool, error) {
	switch strings.ToLower(input) {
	case "y", "yes", "on":
		return true, nil
	case "n", "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(input)
	if err != nil {
		return false, fmt.Errorf("%q is not yes or no", input)
	}
	return b, nil
}

func anyRequired(s formschema.Schema) bool {
	return slices.ContainsFunc(s, formschema.Field.IsRequired)
}
