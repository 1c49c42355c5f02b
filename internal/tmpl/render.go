// Package tmpl fills {{field}} placeholders in message templates.
package tmpl

import (
	"regexp"
	"strings"

	"bulk_sender/internal/model"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render replaces each {{field}} with the contact's value for the lower-cased field name.
// Unknown fields stay in the output untouched so a broken template is visible to the operator.
func Render(template string, c model.Contact) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.ToLower(match[2 : len(match)-2])
		if v, ok := c.Field(key); ok {
			return v
		}
		return match
	})
}

// Placeholders lists the distinct field names a template refers to, in order of first use.
func Placeholders(template string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
