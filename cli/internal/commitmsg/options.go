// Package commitmsg holds the generation options record and turns raw model
// output into the ordered candidate list shown to the user.
package commitmsg

// DefaultNumOptions is the number of alternatives requested in list mode.
const DefaultNumOptions = 5

// Delimiter separates alternatives in list-mode model output.
const Delimiter = ";"

// GenerationOptions is fixed for the duration of one invocation and passed by
// value to every pipeline stage.
type GenerationOptions struct {
	Language   string
	CommitType string // optional; empty means any type
	Template   string // optional; see Processor
	Emoji      bool
	Force      bool // single mode only
	List       bool
	NumOptions int
}

// Normalized returns a copy with NumOptions clamped to at least 1 and a
// default language filled in.
func (o GenerationOptions) Normalized() GenerationOptions {
	if o.NumOptions < 1 {
		o.NumOptions = 1
	}
	if o.Language == "" {
		o.Language = "english"
	}
	return o
}
