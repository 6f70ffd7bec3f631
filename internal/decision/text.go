package decision

import "strings"

func lower(s string) string { return strings.ToLower(s) }

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
