package stream

import "regexp"

// Markdown patterns, applied in a fixed order. Bold markers must go before
// italic so that `**x**` never leaves a stray single marker behind.
var (
	boldStarRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe   = regexp.MustCompile(`__(.+?)__`)
	italicStarRe  = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicUnderRe = regexp.MustCompile(`_([^_\n]+)_`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}[ \t]*`)
	linkRe        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	fenceRe       = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`([^`\n]*)`")
	hrRe          = regexp.MustCompile(`(?m)^[ \t]*(-{3,}|\*{3,}|_{3,})[ \t]*$`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown removes formatting markup from text destined for speech
// synthesis. It is idempotent and never fails on malformed input; unmatched
// markers are left as literal characters. Rendered content events are never
// passed through here — only the text handed to the synthesizer.
func StripMarkdown(text string) string {
	text = boldStarRe.ReplaceAllString(text, "$1")
	text = boldUnderRe.ReplaceAllString(text, "$1")
	text = italicStarRe.ReplaceAllString(text, "$1")
	text = italicUnderRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = fenceRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = hrRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return text
}
