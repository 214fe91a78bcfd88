package utils

import (
	"fmt"
	"reflect"
)

// Returns the value of an object member by name.
// If the member is a method it is assumed that it
// has no paramters and gets called to return the value.
func Member(name string, object any) (any, error) {
	v := reflect.ValueOf(object)

	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("object is not a struct, cannot reference field '%v'", name)
	}

	if result := v.FieldByName(name); result.IsValid() {
		return result.Interface(), nil
	} else if result := v.MethodByName(name); result.IsValid() {
		return result.Call(nil)[0].Interface(), nil
	} else if result := v.Addr().MethodByName(name); result.IsValid() {
		return result.Call(nil)[0].Interface(), nil
	} else {
		return nil, fmt.Errorf("struct '%v' has no field or method named '%v'", v.Type().Name(), name)
	}
}
