package formatters

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"
)

var hostname string

func init() {
	hostname, _ = os.Hostname()
}

// formatLevel applies a LevelFormat to a level name.
func formatLevel(level string, format LevelFormat) string {
	switch format {
	case LevelFormatNameUpper:
		return strings.ToUpper(level)
	case LevelFormatNameLower:
		return strings.ToLower(level)
	case LevelFormatSymbol:
		if level == "" {
			return ""
		}
		return strings.ToUpper(level[:1])
	default:
		return level
	}
}

// formatTimestamp renders t in the configured zone and layout.
func formatTimestamp(t time.Time, opts FormatOptions) string {
	if opts.TimeZone != nil {
		t = t.In(opts.TimeZone)
	}
	layout := opts.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	return t.Format(layout)
}

// sortedKeys returns the keys of fields in lexical order.
func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// safeFields creates a safe copy of fields that handles circular references
func safeFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	visited := make(map[uintptr]bool)
	result := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		result[k] = safeFieldsCopy(v, visited, 0)
	}
	return result
}

// safeFieldsCopy recursively copies a value, replacing cycles, functions and
// channels with markers json can encode.
func safeFieldsCopy(value interface{}, visited map[uintptr]bool, depth int) interface{} {
	const maxDepth = 10
	if depth > maxDepth {
		return "[max depth exceeded]"
	}
	if value == nil {
		return nil
	}
	if _, ok := value.(error); ok {
		return fmt.Sprint(value)
	}
	if _, ok := value.(fmt.Stringer); ok {
		return fmt.Sprint(value)
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if visited[addr] {
			return "[circular reference]"
		}
		visited[addr] = true
		defer delete(visited, addr)

		result := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			result[fmt.Sprint(iter.Key().Interface())] = safeFieldsCopy(iter.Value().Interface(), visited, depth+1)
		}
		return result

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return value
		}
		addr := v.Pointer()
		if visited[addr] {
			return "[circular reference]"
		}
		visited[addr] = true
		defer delete(visited, addr)
		fallthrough

	case reflect.Array:
		result := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			result[i] = safeFieldsCopy(v.Index(i).Interface(), visited, depth+1)
		}
		return result

	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		addr := v.Pointer()
		if visited[addr] {
			return "[circular reference]"
		}
		visited[addr] = true
		defer delete(visited, addr)
		return safeFieldsCopy(v.Elem().Interface(), visited, depth+1)

	case reflect.Struct:
		result := make(map[string]interface{})
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if field.IsExported() {
				result[field.Name] = safeFieldsCopy(v.Field(i).Interface(), visited, depth+1)
			}
		}
		return result

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("[%s]", v.Kind())

	default:
		return value
	}
}
