package observability

import "strings"

const maxLabelLength = 128

func sanitizeLabel(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	if len(trimmed) > maxLabelLength {
		trimmed = trimmed[:maxLabelLength]
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/' || r == '-' || r == '_' || r == '.' || r == '{' || r == '}':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SanitizeRoute normalises a chi route pattern for use as a metric or span label.
func SanitizeRoute(route string) string {
	return sanitizeLabel(route, "unknown")
}

// SanitizeMethod normalises an HTTP method for labels.
func SanitizeMethod(method string) string {
	return strings.ToUpper(sanitizeLabel(method, "UNKNOWN"))
}
