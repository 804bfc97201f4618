package processor

import (
	"regexp"
	"strings"
)

// mojibake repairs byte sequences produced by UTF-8 text decoded as
// Windows-1252, which Telegram exports occasionally carry.
var mojibake = strings.NewReplacer(
	"â€™", "'", // right single quote
	"â€˜", "'", // left single quote
	"â€œ", `"`, // left double quote
	"â€", `"`, // right double quote
	"â€”", "-", // em dash
	"â€“", "-", // en dash
	"â€¦", "...", // ellipsis
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
)

var (
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe  = regexp.MustCompile(`__(.*?)__`)
	codeRe    = regexp.MustCompile("`(.*?)`")
	hashtagRe = regexp.MustCompile(`#[A-Z][A-Z0-9_]+\b`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// Normalize cleans raw source text: encoding repair, emoji removal,
// Telegram emphasis markup stripped to its inner text, decorative
// all-caps hashtags dropped, whitespace collapsed. Total and
// deterministic; empty input yields empty output.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := mojibake.Replace(raw)
	text = stripEmoji(text)
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = codeRe.ReplaceAllString(text, "$1")
	text = hashtagRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

func stripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport
		return true
	case r >= 0x1F900 && r <= 0x1FAFF: // supplemental pictographs
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, ZWJ
		return true
	}
	return false
}
