package stream

import "strings"

// SentenceSegmenter accumulates incremental text fragments and emits
// complete sentences as they become available. A sentence ends at `.`, `!`
// or `?` followed by whitespace. The whitespace run after the punctuation
// stays attached to the emitted sentence, so concatenating every emitted
// sentence with the remaining buffer always reconstructs the exact input.
//
// A segmenter belongs to a single response stream and is not safe for
// concurrent use.
type SentenceSegmenter struct {
	pending string
}

func NewSentenceSegmenter() *SentenceSegmenter {
	return &SentenceSegmenter{}
}

// Feed appends fragment to the internal buffer and returns any sentences
// completed by this call, in order. Boundary detection always runs against
// the cumulative buffer, so punctuation arriving at the start of a fragment
// combines with text buffered by earlier calls.
func (s *SentenceSegmenter) Feed(fragment string) []string {
	s.pending += fragment

	var sentences []string
	start := 0
	i := 0
	for i < len(s.pending) {
		c := s.pending[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(s.pending) && isSpace(s.pending[i+1]) {
			j := i + 1
			for j < len(s.pending) && isSpace(s.pending[j]) {
				j++
			}
			sentences = append(sentences, s.pending[start:j])
			start = j
			i = j
			continue
		}
		i++
	}
	s.pending = s.pending[start:]
	return sentences
}

// Flush returns the unterminated remainder at end of stream. The second
// return is false when the remainder is empty or whitespace-only.
func (s *SentenceSegmenter) Flush() (string, bool) {
	rem := s.pending
	s.pending = ""
	if strings.TrimSpace(rem) == "" {
		return "", false
	}
	return rem, true
}

// Pending returns the currently buffered, not-yet-complete suffix.
func (s *SentenceSegmenter) Pending() string {
	return s.pending
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
