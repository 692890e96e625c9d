package plate

import "strings"

// Clean приводит сырой вывод распознавателя к виду, который ожидает Normalize:
// верхний регистр, только A-Z0-9, не длиннее 7 символов.
func Clean(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, strings.ToUpper(raw))

	if len(cleaned) > Length {
		cleaned = cleaned[:Length]
	}
	return cleaned
}
