package contacts

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"bulk_sender/internal/model"
)

// Row is one parsed spreadsheet row keyed by column header.
type Row map[string]any

var (
	phoneAliases   = []string{"phone", "number", "phonenumber", "mobile", "whatsapp"}
	nameAliases    = []string{"name", "firstname", "fullname", "contact"}
	messageAliases = []string{"message", "text", "content", "msg"}
)

const minPhoneDigits = 10

// Normalize turns raw rows into contacts. Rows without a resolvable phone, name and message
// are dropped; input order and duplicates are kept.
func Normalize(rows []Row) []model.Contact {
	out := make([]model.Contact, 0, len(rows))
	for _, row := range rows {
		c, ok := normalizeRow(row)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

func normalizeRow(row Row) (model.Contact, bool) {
	headers := make([]string, 0, len(row))
	for k := range row {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	// Headers that only differ in case collapse into one key. A non-empty value wins, then a
	// header already in lower case, then the first header in sorted order.
	fields := make(map[string]string, len(row))
	exact := make(map[string]bool, len(row))
	for _, k := range headers {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		s := stringify(row[k])
		isExact := strings.TrimSpace(k) == key
		if prev, ok := fields[key]; ok {
			prevSet := strings.TrimSpace(prev) != ""
			curSet := strings.TrimSpace(s) != ""
			if prevSet && (!curSet || exact[key] || !isExact) {
				continue
			}
			if !prevSet && !curSet {
				continue
			}
		}
		fields[key] = s
		exact[key] = isExact
	}

	phone := NormalizePhone(findField(fields, phoneAliases))
	name := strings.TrimSpace(findField(fields, nameAliases))
	message := strings.TrimSpace(findField(fields, messageAliases))
	if phone == "" || name == "" || message == "" {
		return model.Contact{}, false
	}
	return model.Contact{
		Phone:   phone,
		Name:    name,
		Message: message,
		Fields:  fields,
	}, true
}

func findField(fields map[string]string, aliases []string) string {
	for _, a := range aliases {
		if v := fields[a]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// NormalizePhone keeps the digits of raw. Fewer than ten digits counts as no phone at all.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() < minPhoneDigits {
		return ""
	}
	return b.String()
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimFunc(fmt.Sprint(t), unicode.IsSpace)
	}
}
