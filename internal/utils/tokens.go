package utils

// CountTokens estimates the number of tokens in the given text.
// The heuristic is 1 token ~= 4 characters; it is only used for warnings.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// Preview shortens text to at most limit runes for log output, keeping the
// head and the tail.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	head := limit * 3 / 4
	tail := limit - head
	return string(runes[:head]) + " … " + string(runes[len(runes)-tail:])
}
