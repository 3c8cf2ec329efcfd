package starlark

import (
	"math"
	"reflect"

	"go.starlark.net/starlark"
)

// StrictEqual compares two values without implicit conversion between
// types. Numbers compare numerically whether int or float, and NaN equals
// nothing, itself included; strings,
// booleans, bytes and None compare by value within the same type; tuples
// compare element-wise; every other value (lists, dicts, functions, story
// objects) compares by identity.
func StrictEqual(x, y starlark.Value) (bool, error) {
	switch x.(type) {
	case starlark.Int, starlark.Float:
		switch y.(type) {
		case starlark.Int, starlark.Float:
			if isNaN(x) || isNaN(y) {
				return false, nil
			}
			return starlark.Equal(x, y)
		}
		return false, nil

	case starlark.String, starlark.Bool, starlark.Bytes, starlark.NoneType:
		if x.Type() != y.Type() {
			return false, nil
		}
		return starlark.Equal(x, y)

	case starlark.Tuple:
		yt, ok := y.(starlark.Tuple)
		if !ok || len(yt) != len(x.(starlark.Tuple)) {
			return false, nil
		}
		for i, xe := range x.(starlark.Tuple) {
			eq, err := StrictEqual(xe, yt[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}

	if reflect.TypeOf(x) != reflect.TypeOf(y) || !reflect.TypeOf(x).Comparable() {
		return false, nil
	}
	return x == y, nil
}

// ContainsStrict reports whether any of values is strictly equal to v.
func ContainsStrict(values []starlark.Value, v starlark.Value) (bool, error) {
	for _, candidate := range values {
		eq, err := StrictEqual(candidate, v)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

func isNaN(v starlark.Value) bool {
	f, ok := v.(starlark.Float)
	return ok && math.IsNaN(float64(f))
}
