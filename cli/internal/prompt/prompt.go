// Package prompt builds the instruction sent to the model for a staged diff.
package prompt

import (
	"strconv"
	"strings"

	"ollacommit/cli/internal/commitmsg"
)

// Mode selects between a single proposal and a list of alternatives.
type Mode int

const (
	Single Mode = iota
	List
)

// ModeFor returns List when opts.List is set, otherwise Single.
func ModeFor(opts commitmsg.GenerationOptions) Mode {
	if opts.List {
		return List
	}
	return Single
}

const (
	intro = "I want you to act as the author of a commit message in git. " +
		"I'll enter a git diff, and your job is to convert it into a useful commit message in "
	formatRules = "use the present tense, return the full sentence, and use the conventional commits specification " +
		"(<type in lowercase>: <subject>)."
	diffHeader = "\n\nHere is the git diff:\n"
)

// Build returns the prompt for diff. The diff is appended verbatim after a
// fixed header at the end of the prompt. Output depends only on the inputs.
func Build(diff string, opts commitmsg.GenerationOptions, mode Mode) string {
	opts = opts.Normalized()
	var b strings.Builder
	b.WriteString(intro)
	b.WriteString(opts.Language)
	b.WriteString(" language")
	if opts.CommitType != "" {
		b.WriteString(" with commit type '")
		b.WriteString(opts.CommitType)
		b.WriteString("'")
	}
	switch mode {
	case List:
		b.WriteString(", and make ")
		b.WriteString(strconv.Itoa(opts.NumOptions))
		b.WriteString(` options that are separated by "` + commitmsg.Delimiter + `". `)
		b.WriteString("For each option, ")
		b.WriteString(formatRules)
		b.WriteString(" Return only the options on a single line, without numbering and without any other commentary.")
	default:
		b.WriteString(". Do not preface the commit with anything, ")
		b.WriteString(formatRules)
		b.WriteString(" Return exactly one line and no other commentary.")
	}
	b.WriteString(diffHeader)
	b.WriteString(diff)
	return b.String()
}
