package commitmsg

import "strings"

// fallbackEmoji is used for any type not in typeEmoji, so the mapping is total.
const fallbackEmoji = "📦"

var typeEmoji = map[string]string{
	"feat":     "✨",
	"fix":      "🐛",
	"docs":     "📝",
	"style":    "💄",
	"refactor": "♻️",
	"perf":     "⚡",
	"test":     "✅",
	"chore":    "🔧",
	"build":    "👷",
	"ci":       "💚",
	"revert":   "⏪",
}

// CommitType extracts the conventional-commit type of msg: the text before
// the first colon, without scope or breaking marker, lowercased.
// "feat(api)!: x" yields "feat". Messages without a colon yield "".
func CommitType(msg string) string {
	head, _, ok := strings.Cut(msg, ":")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(head, '('); i >= 0 {
		head = head[:i]
	}
	head = strings.TrimSuffix(strings.TrimSpace(head), "!")
	return strings.ToLower(strings.TrimSpace(head))
}

// EmojiFor returns the glyph for a conventional-commit type.
func EmojiFor(commitType string) string {
	if e, ok := typeEmoji[strings.ToLower(commitType)]; ok {
		return e
	}
	return fallbackEmoji
}

// WithEmoji prefixes msg with the glyph for its type.
func WithEmoji(msg string) string {
	return EmojiFor(CommitType(msg)) + " " + msg
}
