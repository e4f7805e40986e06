package router

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BindError reports a parameter that could not be bound.
type BindError struct {
	Param string
	Value string
	Err   error
}

func (e *BindError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("router: param %q: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("router: param %q = %q: %v", e.Param, e.Value, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

var (
	errMissing  = fmt.Errorf("required parameter missing")
	uuidType    = reflect.TypeOf(uuid.UUID{})
	durationTyp = reflect.TypeOf(time.Duration(0))
	textType    = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Bind copies p into the struct pointed to by target. Fields opt in with a
// `param:"name"` tag; `param:"name,required"` fails when the parameter is
// absent. Other absent parameters leave their field untouched.
//
// Supported field types are strings, integers, floats, bools,
// time.Duration, uuid.UUID, encoding.TextUnmarshaler implementations and
// pointers to any of these. Parameters stay strings everywhere else; the
// resolver never converts them.
//
//	var args struct {
//	    Family uuid.UUID `param:"fid,required"`
//	    Person int       `param:"pid"`
//	}
//	if err := params.Bind(&args); err != nil { ... }
func (p Params) Bind(target any) error {
	return Bind(p, target)
}

// Bind is Params.Bind for a plain map.
func Bind(params map[string]string, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("router: Bind target must be a non-nil pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("router: Bind target must point to a struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("param")
		if !ok || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}

		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		value, present := params[name]
		if !present {
			if opts == "required" {
				return &BindError{Param: name, Err: errMissing}
			}
			continue
		}
		if err := setParam(field, value); err != nil {
			return &BindError{Param: name, Value: value, Err: err}
		}
	}
	return nil
}

func setParam(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := setParam(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	switch {
	case field.Type() == uuidType:
		id, err := uuid.Parse(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(id))
		return nil
	case field.Type() == durationTyp:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	case reflect.PointerTo(field.Type()).Implements(textType):
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(value))
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return numError(err)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return numError(err)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return numError(err)
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return numError(err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// numError drops the strconv function prefix; BindError already names
// the parameter and value.
func numError(err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err
	}
	return err
}
