// Package template provides placeholder rendering for message templates.
// This is part of the platform layer and contains no business logic.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

var conditionalOpenRe = regexp.MustCompile(`\{\{(\w+)_if_exists\}\}`)

// Render merges a template body with a data record. Conditional blocks are
// resolved first so their inner placeholders remain eligible for
// substitution:
//
//	{{vin_if_exists}}, VIN: {{vin}}{{/vin_if_exists}}
//
// keeps the region (markers stripped) when data["vin"] is set and removes the
// whole region otherwise. Placeholders with no matching key are left verbatim
// so unresolved variables surface visibly instead of silently blanking.
func Render(tpl string, data map[string]any) string {
	out := expandConditionals(tpl, data)

	return placeholderRe.ReplaceAllStringFunc(out, func(match string) string {
		name := match[2 : len(match)-2]
		value, ok := data[name]
		if !ok {
			return match
		}
		return stringify(value)
	})
}

func expandConditionals(tpl string, data map[string]any) string {
	for {
		loc := conditionalOpenRe.FindStringSubmatchIndex(tpl)
		if loc == nil {
			return tpl
		}

		name := tpl[loc[2]:loc[3]]
		closing := "{{/" + name + "_if_exists}}"
		rest := tpl[loc[1]:]
		closeIdx := strings.Index(rest, closing)
		if closeIdx < 0 {
			// Unbalanced marker: strip the opener and keep going.
			return tpl[:loc[0]] + expandConditionals(rest, data)
		}

		inner := rest[:closeIdx]
		tail := rest[closeIdx+len(closing):]

		var replacement string
		if truthy(data[name]) {
			replacement = inner
		}
		tpl = tpl[:loc[0]] + replacement + tail
	}
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(typed) != ""
	case bool:
		return typed
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return true
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
