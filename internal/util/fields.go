package util

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldError represents a failed property lookup or assignment with detailed
// information.
type FieldError struct {
	Field   string // Field that failed
	Value   any    // Value that was provided
	Message string // Human-readable error message
}

// Error implements the error interface for FieldError.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// Field pairs a bindable property name with the addressable struct field
// backing it.
type Field struct {
	Name  string
	Value reflect.Value
}

// BindableFields enumerates the bindable properties of a host struct using
// reflection: every exported, settable field of the pointed-to struct, in
// declaration order. Fields tagged `state:"-"` are skipped; a non-empty
// `state` tag renames the property.
//
// The host must be a non-nil pointer to a struct so the returned field
// values are addressable and writable.
func BindableFields(host any) ([]Field, error) {
	v := reflect.ValueOf(host)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("host must be a non-nil struct pointer, got %T", host)
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("host must point to a struct, got %s", elem.Kind())
	}

	t := elem.Type()
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		fv := elem.Field(i)
		if !fv.CanSet() {
			continue
		}
		fields = append(fields, Field{Name: name, Value: fv})
	}
	return fields, nil
}

// ReadableFields enumerates the exported fields of a struct for whole-object
// reads, in declaration order. Unlike BindableFields the source may be a plain
// struct value and settability is not required; tag handling is identical.
func ReadableFields(src any) ([]Field, error) {
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("source must not be nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("source must be a struct or struct pointer, got %T", src)
	}

	t := v.Type()
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: name, Value: v.Field(i)})
	}
	return fields, nil
}

// fieldName resolves the property name for a struct field, honoring the
// `state` tag. The second result is false when the field is opted out.
func fieldName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("state")
	if tag == "-" {
		return "", false
	}
	if tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" {
			return name, true
		}
	}
	return sf.Name, true
}

// Assign writes value into target, converting between numeric kinds when the
// types differ but both are numeric. A nil value zeroes nil-able targets and
// fails otherwise. Any other type mismatch is an error; the target is left
// untouched on failure.
func Assign(name string, target reflect.Value, value any) error {
	if !target.IsValid() || !target.CanSet() {
		return &FieldError{Field: name, Value: value, Message: "target is not settable"}
	}

	if value == nil {
		switch target.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
			target.Set(reflect.Zero(target.Type()))
			return nil
		default:
			return &FieldError{Field: name, Message: fmt.Sprintf("cannot assign nil to %s", target.Type())}
		}
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(target.Type()):
		target.Set(rv)
	case isNumeric(rv.Kind()) && isNumeric(target.Kind()):
		target.Set(rv.Convert(target.Type()))
	default:
		return &FieldError{
			Field:   name,
			Value:   value,
			Message: fmt.Sprintf("cannot assign %s to %s", rv.Type(), target.Type()),
		}
	}
	return nil
}

// isNumeric reports whether the kind participates in numeric conversion.
func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
