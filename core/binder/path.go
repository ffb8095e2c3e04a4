package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path returns a binder that fills struct fields from path parameters
// via the router-specific extractor. Fields opt in with a `path:"name"`
// tag (default: lowercased field name; "-" skips). Missing parameters
// leave the field at its zero value.
func Path(extractor func(r *http.Request, fieldName string) string) Binder {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return fmt.Errorf("%w: target must be a non-nil pointer", ErrFailedToParsePath)
		}
		rv = rv.Elem()
		if rv.Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrFailedToParsePath)
		}

		rt := rv.Type()
		for i := range rv.NumField() {
			field := rv.Field(i)
			if !field.CanSet() {
				continue
			}
			name, skip := fieldParamName(rt.Field(i), "path")
			if skip {
				continue
			}
			value := extractor(r, name)
			if value == "" {
				continue
			}
			if err := setField(field, rt.Field(i).Type, []string{value}); err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrFailedToParsePath, rt.Field(i).Name, err)
			}
		}
		return nil
	}
}
