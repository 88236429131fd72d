package pipeline

import "strings"

var captureIntents = []string{"take picture", "click picture"}

// MatchesCaptureIntent reports whether a spoken command asks for a photo.
func MatchesCaptureIntent(command string) bool {
	c := normalizeCommand(command)
	for _, phrase := range captureIntents {
		if strings.Contains(c, phrase) {
			return true
		}
	}
	return false
}

func normalizeCommand(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
