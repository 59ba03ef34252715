package lang

import (
	"cmp"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Env holds the variables visible to a template.
type Env = map[string]any

// truthy reports whether v counts as true in a condition. Zero numbers, empty
// strings and collections, nil, and false are false.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case float64:
		return v != 0
	case error:
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	default:
		return !rv.IsZero()
	}
}

// iterate returns the items a for loop visits over v. Maps are visited in
// sorted key order: with two targets each item is a key and value pair,
// otherwise the key. Strings are visited by rune. Integers count up from zero.
func iterate(v any, targets int) ([]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("cannot iterate over nil")
	case []any:
		return v, nil
	case string:
		items := make([]any, 0, len(v))
		for _, r := range v {
			items = append(items, string(r))
		}

		return items, nil
	case *Buffer:
		return toAny(v.Snapshot()), nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}

		return items, nil

	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		})

		items := make([]any, len(keys))
		for i, k := range keys {
			if targets == 2 {
				items[i] = []any{k.Interface(), rv.MapIndex(k).Interface()}
			} else {
				items[i] = k.Interface()
			}
		}

		return items, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		items := make([]any, max(rv.Int(), 0))
		for i := range items {
			items[i] = i
		}

		return items, nil

	default:
		return nil, fmt.Errorf("cannot iterate over %T", v)
	}
}

// unpack splits v into exactly n values.
func unpack(v any, n int) ([]any, error) {
	var items []any

	rv := reflect.ValueOf(v)

	switch {
	case v == nil:
		return nil, fmt.Errorf("cannot unpack nil into %d names", n)
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	default:
		return nil, fmt.Errorf("cannot unpack %T into %d names", v, n)
	}

	if len(items) != n {
		return nil, fmt.Errorf("cannot unpack %d values into %d names", len(items), n)
	}

	return items, nil
}

// stringify converts a value to its textual form. Byte slices are decoded
// with dec.
func stringify(v any, dec func([]byte) string) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return dec(v)
	case []string:
		return strings.Join(v, "")
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// printItems converts the argument of an output statement to the strings it
// writes.
func printItems(items any, str func(any) string) ([]string, error) {
	switch items := items.(type) {
	case nil:
		return nil, nil
	case []string:
		return items, nil
	case *Buffer:
		return items.Snapshot(), nil
	case []any:
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = str(item)
		}

		return parts, nil
	default:
		return []string{str(items)}, nil
	}
}

// toEnv converts a map value to an [Env]. Nil converts to an empty Env.
func toEnv(v any) (Env, error) {
	switch v := v.(type) {
	case nil:
		return Env{}, nil
	case map[string]any:
		return maps.Clone(v), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("variables must be a map with string keys, got %T", v)
	}

	env := make(Env, rv.Len())
	for it := rv.MapRange(); it.Next(); {
		env[it.Key().String()] = it.Value().Interface()
	}

	return env, nil
}

// mergeEnv returns a new Env holding the bindings of each env in order, later
// ones overriding earlier ones.
func mergeEnv(envs ...Env) Env {
	n := 0
	for _, e := range envs {
		n += len(e)
	}

	out := make(Env, n)
	for _, e := range envs {
		maps.Copy(out, e)
	}

	return out
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}

	return out
}
