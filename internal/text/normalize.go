package text

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Normalize converts an arbitrary reply payload into a display string.
// It never panics: any failure degrades to a textual fallback.
func Normalize(value any) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback(value)
		}
	}()
	return normalize(value, 0)
}

// maxDepth bounds nesting so self-referencing values cannot exhaust the stack.
const maxDepth = 1000

func normalize(value any, depth int) string {
	if depth > maxDepth {
		return fmt.Sprintf("%T", value)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case float64:
		return formatFloat(v, 64)
	case float32:
		return formatFloat(float64(v), 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case json.RawMessage:
		return normalizeRaw(v, depth)
	case []byte:
		return normalizeRaw(v, depth)
	case []any:
		return normalizeSlice(v, depth)
	case map[string]any:
		return normalizeObject(v, depth)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return normalize(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		elements := make([]any, rv.Len())
		for i := range elements {
			elements[i] = rv.Index(i).Interface()
		}
		return normalizeSlice(elements, depth)
	case reflect.String:
		return rv.String()
	}

	// Structs and typed maps: use their JSON form so `text` fields unwrap the same way.
	generic, err := toGeneric(value)
	if err != nil {
		return fallback(value)
	}
	switch generic.(type) {
	case map[string]any, []any:
		return normalize(generic, depth+1)
	}
	return pretty(value)
}

func normalizeRaw(raw []byte, depth int) string {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return normalize(decoded, depth+1)
}

// normalizeSlice joins element texts with newlines; if any element fails the
// whole slice is dumped instead of returning partial output.
func normalizeSlice(elements []any, depth int) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = compact(elements)
		}
	}()
	parts := make([]string, 0, len(elements))
	for _, element := range elements {
		parts = append(parts, normalize(element, depth+1))
	}
	return strings.Join(parts, "\n")
}

func normalizeObject(object map[string]any, depth int) string {
	if field, ok := object["text"]; ok {
		switch field.(type) {
		case string, float64, float32, json.Number, int, int64, int32:
			return normalize(field, depth+1)
		}
	}
	return pretty(object)
}

func formatFloat(f float64, bitSize int) string {
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func toGeneric(value any) (any, error) {
	bytes, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(bytes, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func pretty(value any) string {
	bytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fallback(value)
	}
	return string(bytes)
}

func compact(value any) string {
	bytes, err := json.Marshal(value)
	if err != nil {
		return fallback(value)
	}
	return string(bytes)
}

// fallback prints scalars as-is. Containers only print their type, since
// fmt follows cycles forever.
func fallback(value any) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("%T", value)
		}
	}()
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return fmt.Sprintf("%T", value)
	}
	return fmt.Sprint(value)
}
