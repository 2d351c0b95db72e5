// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package roda

import (
	"reflect"
	"unsafe"
)

// checkPlainData verifies, at construction time, that T satisfies the
// element-type contract: fixed size, trivially copyable, safe to
// observe under any bit pattern, and free of embedded indirections. Go has
// no "plain old data" marker trait, so the check is done once via
// reflection over T's zero value at store construction.
func checkPlainData[T any]() error {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		// T is an interface type instantiated with a nil value; reflect
		// cannot inspect it, and interfaces are indirections regardless.
		return invalidTypeError("<nil>", "interface types are not permitted")
	}
	if err := checkPlainType(typ, make(map[reflect.Type]bool)); err != nil {
		return err
	}
	if typ.Size() == 0 {
		return invalidTypeError(typ.String(), "zero-sized types are not permitted")
	}
	if wordSize := unsafe.Sizeof(uintptr(0)); uintptr(typ.Align()) < wordSize {
		return invalidTypeError(typ.String(), "must be aligned to at least the machine word")
	}
	return nil
}

// checkPlainType recursively rejects kinds that imply an owned buffer,
// dynamic string, pointer, or other indirection. visited holds the types
// on the current recursion path only, guarding against infinite recursion
// on self-referential struct definitions (which would be invalid for a
// fixed-size type in any case, but reflection alone cannot rule that out
// ahead of time); sibling fields of the same type are not affected.
func checkPlainType(typ reflect.Type, visited map[reflect.Type]bool) error {
	if visited[typ] {
		return invalidTypeError(typ.String(), "self-referential type has no fixed size")
	}
	visited[typ] = true
	defer delete(visited, typ)

	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return checkPlainType(typ.Elem(), visited)
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if err := checkPlainType(typ.Field(i).Type, visited); err != nil {
				return err
			}
		}
		return nil
	case reflect.Ptr, reflect.Slice, reflect.String, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return invalidTypeError(typ.String(), "kind "+typ.Kind().String()+" is an indirection, not permitted for T")
	default:
		return invalidTypeError(typ.String(), "unsupported kind "+typ.Kind().String())
	}
}
