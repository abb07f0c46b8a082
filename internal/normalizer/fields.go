package normalizer

import (
	"amokanban/pkg/model"
	"strings"
)

// Lookup returns the value of the first field named exactly name, or "".
func Lookup(fields []model.CustomField, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// LookupFirst tries candidates in order and returns the first non-empty value.
func LookupFirst(fields []model.CustomField, candidates ...string) string {
	for _, name := range candidates {
		if v := Lookup(fields, name); v != "" {
			return v
		}
	}
	return ""
}

var dateFieldHints = []string{"дата", "брони", "время", "date", "time"}

// FindDateField reports the first field whose name looks like it holds a
// booking date. Used for diagnostics only.
func FindDateField(fields []model.CustomField) (model.CustomField, bool) {
	for _, f := range fields {
		name := strings.ToLower(f.Name)
		for _, hint := range dateFieldHints {
			if strings.Contains(name, hint) {
				return f, true
			}
		}
	}
	return model.CustomField{}, false
}
