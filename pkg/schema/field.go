package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/marshallshelly/modspace/pkg/runtime"
)

// Field is one entry of a model's accessor table. The getter and setter
// closures are built once per type by the parser.
type Field struct {
	Property string
	// Column is empty for the relation field.
	Column string
	GoField string
	Type    reflect.Type

	get func(model reflect.Value) any
	set func(model reflect.Value, value any) error
}

// Get reads the field from an addressable model struct.
func (f *Field) Get(model reflect.Value) any {
	return f.get(model)
}

// Set writes value into the field, converting driver values as needed.
func (f *Field) Set(model reflect.Value, value any) error {
	return f.set(model, value)
}

// IsZero reports whether the field holds its zero value.
func (f *Field) IsZero(model reflect.Value) bool {
	v := f.Get(model)
	return v == nil || reflect.ValueOf(v).IsZero()
}

func newField(property, column string, sf reflect.StructField) *Field {
	index := sf.Index
	return &Field{
		Property: property,
		Column:   column,
		GoField:  sf.Name,
		Type:     sf.Type,
		get: func(model reflect.Value) any {
			return model.FieldByIndex(index).Interface()
		},
		set: func(model reflect.Value, value any) error {
			if err := assign(model.FieldByIndex(index), value); err != nil {
				return fmt.Errorf("field %s: %w", property, err)
			}
			return nil
		},
	}
}

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// assign stores src into dst, converting the values database drivers
// commonly return (int64, float64, []byte, string, time.Time) into the field's
// declared type.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}

	if dst.Kind() == reflect.Pointer {
		// Dereference a pointer source of the same shape.
		if sv.Kind() == reflect.Pointer {
			if sv.IsNil() {
				dst.Set(reflect.Zero(dst.Type()))
				return nil
			}
			src = sv.Elem().Interface()
		}
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	if b, ok := src.([]byte); ok {
		src = string(b)
		sv = reflect.ValueOf(src)
	}

	switch dst.Kind() {
	case reflect.String:
		switch s := src.(type) {
		case string:
			dst.SetString(s)
			return nil
		case int64:
			dst.SetString(strconv.FormatInt(s, 10))
			return nil
		case time.Time:
			dst.SetString(s.Format(time.RFC3339Nano))
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(src)
		if ok && !dst.OverflowInt(n) {
			dst.SetInt(n)
			return nil
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toInt64(src)
		if ok && n >= 0 && !dst.OverflowUint(uint64(n)) {
			dst.SetUint(uint64(n))
			return nil
		}

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(src)
		if ok {
			dst.SetFloat(f)
			return nil
		}

	case reflect.Bool:
		switch s := src.(type) {
		case bool:
			dst.SetBool(s)
			return nil
		case string:
			b, err := strconv.ParseBool(s)
			if err == nil {
				dst.SetBool(b)
				return nil
			}
		default:
			if n, ok := toInt64(src); ok {
				dst.SetBool(n != 0)
				return nil
			}
		}

	case reflect.Struct:
		if dst.Type() == timeType {
			if s, ok := src.(string); ok {
				for _, layout := range timeLayouts {
					if t, err := time.Parse(layout, s); err == nil {
						dst.Set(reflect.ValueOf(t))
						return nil
					}
				}
			}
		}
	}

	if sv.Type().ConvertibleTo(dst.Type()) && sv.Kind() == dst.Kind() {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("%w: cannot assign %T to %s", runtime.ErrInvalidType, src, dst.Type())
}

func toInt64(src any) (int64, bool) {
	v := reflect.ValueOf(src)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	case reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.String:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat64(src any) (float64, bool) {
	v := reflect.ValueOf(src)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.String:
		f, err := strconv.ParseFloat(v.String(), 64)
		return f, err == nil
	}
	return 0, false
}
