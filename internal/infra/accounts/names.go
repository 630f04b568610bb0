package accounts

import "strings"

const maxPanelUsernameLength = 16

// PanelUsername derives a control-panel username from a domain: the label
// before the first dot, non-alphanumerics removed, capped at 16 characters
// to satisfy typical panel username limits.
func PanelUsername(domain string) string {
	label := domain
	if i := strings.Index(domain, "."); i >= 0 {
		label = domain[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxPanelUsernameLength {
			break
		}
	}
	return b.String()
}

// MailServerHostname is pure and deterministic; its result feeds the email
// DNS records.
func MailServerHostname(domain string) string {
	return "mail." + domain
}
