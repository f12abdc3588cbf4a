package config

import (
	"reflect"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Settings turns a config struct into the nested map viper reads and
// writes, keyed by mapstructure tags. Durations become strings like "500ms".
func Settings(v any) map[string]any {
	return structMap(reflect.ValueOf(v))
}

func structMap(rv reflect.Value) map[string]any {
	out := make(map[string]any)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		fv := rv.Field(i)

		if opts == "squash" && fv.Kind() == reflect.Struct {
			for k, val := range structMap(fv) {
				out[k] = val
			}
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		out[name] = value(fv)
	}
	return out
}

func value(fv reflect.Value) any {
	switch {
	case fv.Type() == durationType:
		return time.Duration(fv.Int()).String()
	case fv.Kind() == reflect.Struct:
		return structMap(fv)
	case fv.Kind() == reflect.String:
		// Named string types such as tracking.Mode
		return fv.String()
	}
	return fv.Interface()
}

// flatten turns nested maps into dotted keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for fk, fv := range flatten(key, sub) {
				out[fk] = fv
			}
			continue
		}
		out[key] = v
	}
	return out
}
