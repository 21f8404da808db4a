package service

import "regexp"

var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)

// ParseMentions returns the distinct usernames mentioned in text, in order
// of first appearance.
func ParseMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}
