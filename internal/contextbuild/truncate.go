package contextbuild

// Truncate enforces a character ceiling on text, keeping the suffix. Recent
// content (latest messages, latest turns) matters more than the earliest, so
// shortening always drops from the front. Ceilings are counted in runes so a
// multi-byte character is never split.
func Truncate(text string, ceiling int) (string, bool) {
	if ceiling <= 0 {
		if text == "" {
			return "", false
		}
		return "", true
	}
	runes := []rune(text)
	if len(runes) <= ceiling {
		return text, false
	}
	return string(runes[len(runes)-ceiling:]), true
}
