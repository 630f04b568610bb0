package registrar

import "strings"

const maxLabelLength = 63

// SanitizeLabel turns a business name into a DNS label: lowercase, only
// [a-z0-9], truncated to 63 characters.
func SanitizeLabel(businessName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(businessName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxLabelLength {
			break
		}
	}
	return b.String()
}
