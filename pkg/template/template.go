// Package template renders the placeholders of module endpoint configurations, such as
// https://shop.example.com/orders/{{ .orderId | path }}/cancel.
package template

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"
)

// NeedsTemplating reports whether input contains a template action.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Render executes templateStr against data. Referencing a key missing from data is an error.
func Render(templateStr string, data map[string]any) (string, error) {
	if !NeedsTemplating(templateStr) {
		return templateStr, nil
	}

	tmpl, err := template.
		New("endpoint").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"path": func(v any) string {
				return url.PathEscape(fmt.Sprint(v))
			},
			"query": func(v any) string {
				return url.QueryEscape(fmt.Sprint(v))
			},
			"default": func(fallback, v any) any {
				if v == nil || v == "" {
					return fallback
				}

				return v
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}
