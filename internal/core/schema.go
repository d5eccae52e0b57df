package core

// Kind is the expected type of a service-data field.
type Kind string

const (
	KindAny    Kind = "any"
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"
)

// Field describes one schema entry.
type Field struct {
	Kind     Kind
	Required bool
}

// Schema validates the data mapping passed to a service call. A nil
// Schema accepts anything. Keys not present in the schema are rejected,
// so handlers only ever see fields they declared.
type Schema map[string]Field

// Validate checks data against the schema, returning a *ValidationError
// (unwrapping to ErrInvalidServiceData) on the first violation found.
func (s Schema) Validate(data map[string]any) error {
	if s == nil {
		return nil
	}

	for name, field := range s {
		value, ok := data[name]
		if !ok {
			if field.Required {
				return &ValidationError{Field: name, Reason: "required field missing"}
			}
			continue
		}
		if !kindMatches(field.Kind, value) {
			return &ValidationError{Field: name, Reason: "expected " + string(field.Kind)}
		}
	}

	for name := range data {
		if _, ok := s[name]; !ok {
			return &ValidationError{Field: name, Reason: "unknown field"}
		}
	}
	return nil
}

// kindMatches reports whether value satisfies the expected kind.
// Numbers accept every Go numeric type JSON and YAML decoding produce.
func kindMatches(kind Kind, value any) bool {
	switch kind {
	case KindAny, "":
		return true
	case KindString:
		_, ok := value.(string)
		return ok
	case KindBool:
		_, ok := value.(bool)
		return ok
	case KindNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case KindList:
		_, ok := value.([]any)
		return ok
	case KindMap:
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}
