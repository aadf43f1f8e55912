package telegram

import "strings"

// displayName resolves a human-readable name for a Telegram user record.
// Precedence: username, then "first last" trimmed, then the numeric id as a
// string. Every enrichment routine and the outbound mention renderer rely
// on this exact order.
func displayName(user map[string]any) string {
	if username := strField(user, "username"); username != "" {
		return username
	}

	full := strings.TrimSpace(strField(user, "first_name") + " " + strField(user, "last_name"))
	if full != "" {
		return full
	}

	return idString(user, "id")
}
