package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	msgRequired = "This field is required."
	msgNotNull  = "This field may not be null."
	msgBlank    = "This field may not be blank."
)

// Optional records whether a JSON field was present and whether it was null,
// which a pointer alone cannot tell apart on PATCH.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Some returns a present, non-null Optional holding value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: value}
}

func maxLengthMessage(max int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
}

// cleanText trims the value and checks it against the length limit. Blank
// text is accepted only when allowBlank is set.
func cleanText(v *ValidationError, field, value string, max int, allowBlank bool) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" && !allowBlank {
		v.Add(field, msgBlank)
		return "", false
	}
	if utf8.RuneCountInString(value) > max {
		v.Add(field, maxLengthMessage(max))
		return "", false
	}
	return value, true
}

// requiredText validates a non-null, non-blank text field that must be
// present when required is set.
func requiredText(v *ValidationError, field string, o Optional[string], max int, required bool) (string, bool) {
	switch {
	case !o.Set:
		if required {
			v.Add(field, msgRequired)
		}
		return "", false
	case o.Null:
		v.Add(field, msgNotNull)
		return "", false
	}
	return cleanText(v, field, o.Value, max, false)
}

// jsonKind names a raw JSON value's type the way the error messages do.
func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "null"
	}
	switch raw[0] {
	case '"':
		return "str"
	case '{':
		return "dict"
	case '[':
		return "list"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	}
	if bytes.ContainsAny(raw, ".eE") {
		return "float"
	}
	return "int"
}

// ParseMemberIDs decodes a members payload: a JSON list of user ids, given
// either as whole numbers or as digit strings. An absent field yields nil.
func ParseMemberIDs(raw json.RawMessage) ([]uint, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if jsonKind(raw) == "null" {
		return nil, NewValidationError("members", msgNotNull)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, NewValidationError("members", fmt.Sprintf("Expected a list of items but got type %q.", jsonKind(raw)))
	}

	ids := make([]uint, 0, len(items))
	v := &ValidationError{}
	for _, item := range items {
		id, ok := parsePK(item)
		if !ok {
			v.Add("members", fmt.Sprintf("Incorrect type. Expected pk value, received %s.", jsonKind(item)))
			continue
		}
		ids = append(ids, id)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return ids, nil
}

func parsePK(item json.RawMessage) (uint, bool) {
	var text string
	switch jsonKind(item) {
	case "int":
		text = string(bytes.TrimSpace(item))
	case "str":
		if err := json.Unmarshal(item, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	default:
		return 0, false
	}
	id, err := strconv.ParseUint(text, 10, 0)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func invalidPKMessage(id uint) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

func missingPKError(field string, missing []uint) *ValidationError {
	v := &ValidationError{}
	for _, id := range missing {
		v.Add(field, invalidPKMessage(id))
	}
	return v
}
