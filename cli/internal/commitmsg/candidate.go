package commitmsg

// Kind tags a Candidate.
type Kind int

const (
	KindMessage Kind = iota
	KindRegenerate
)

// RegenerateLabel is shown for the regenerate entry. It is display text only;
// the entry is recognized by Kind.
const RegenerateLabel = "♻️  Regenerate commit messages"

// Candidate is one entry of the proposal list: a commit message or the
// regenerate pseudo-entry, which is never a valid commit value.
type Candidate struct {
	Kind Kind
	Text string
}

// Message returns a message candidate.
func Message(text string) Candidate {
	return Candidate{Kind: KindMessage, Text: text}
}

// Regenerate returns the regenerate pseudo-candidate.
func Regenerate() Candidate {
	return Candidate{Kind: KindRegenerate}
}

// IsRegenerate reports whether c is the regenerate pseudo-candidate.
func (c Candidate) IsRegenerate() bool {
	return c.Kind == KindRegenerate
}

// Label is the text shown in menus.
func (c Candidate) Label() string {
	if c.IsRegenerate() {
		return RegenerateLabel
	}
	return c.Text
}
