package stream

import (
	"strings"
	"testing"
)

func TestSegmenterReconstruction(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
	}{
		{
			name:      "punctuation split across fragments",
			fragments: []string{"Hello wor", "ld. How are you", "?"},
		},
		{
			name:      "boundary at fragment start",
			fragments: []string{"First sentence.", " Second one follows.", " Tail"},
		},
		{
			name:      "single char fragments",
			fragments: []string{"A", ".", " ", "B", "!", " ", "C"},
		},
		{
			name:      "no punctuation at all",
			fragments: []string{"just ", "a ", "run-on ", "thought"},
		},
		{
			name:      "only punctuation and spaces",
			fragments: []string{". ", "! ", "? "},
		},
		{
			name:      "abbreviation-like dots with no trailing space",
			fragments: []string{"v1.2.3 released", " today. Enjoy"},
		},
		{
			name:      "newline as boundary whitespace",
			fragments: []string{"Line one.\nLine two?", "\tLine three"},
		},
		{
			name:      "empty fragments interleaved",
			fragments: []string{"", "Hi. ", "", "There"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seg := NewSentenceSegmenter()
			var rebuilt strings.Builder
			for _, f := range tc.fragments {
				for _, s := range seg.Feed(f) {
					rebuilt.WriteString(s)
				}
			}
			rebuilt.WriteString(seg.Pending())

			want := strings.Join(tc.fragments, "")
			if rebuilt.String() != want {
				t.Errorf("reconstruction mismatch\n got: %q\nwant: %q", rebuilt.String(), want)
			}
		})
	}
}

func TestSegmenterNoSentenceLoss(t *testing.T) {
	seg := NewSentenceSegmenter()
	sentences := seg.Feed("A. B. C")

	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %q", len(sentences), sentences)
	}
	if sentences[0] != "A. " || sentences[1] != "B. " {
		t.Errorf("unexpected sentences: %q", sentences)
	}

	rem, ok := seg.Flush()
	if !ok || rem != "C" {
		t.Errorf("flush = %q, %v; want %q, true", rem, ok, "C")
	}
}

func TestSegmenterCrossFragmentBoundary(t *testing.T) {
	seg := NewSentenceSegmenter()

	if got := seg.Feed("Hello wor"); len(got) != 0 {
		t.Fatalf("unexpected sentences before boundary: %q", got)
	}
	got := seg.Feed("ld. How are you")
	if len(got) != 1 || got[0] != "Hello world. " {
		t.Fatalf("sentences after second fragment = %q, want [%q]", got, "Hello world. ")
	}
	if got := seg.Feed("?"); len(got) != 0 {
		t.Fatalf("question mark without trailing space completed a sentence: %q", got)
	}
	rem, ok := seg.Flush()
	if !ok || rem != "How are you?" {
		t.Errorf("flush = %q, %v; want %q, true", rem, ok, "How are you?")
	}
}

func TestSegmenterFlushBlank(t *testing.T) {
	seg := NewSentenceSegmenter()
	seg.Feed("Done! ")
	if rem, ok := seg.Flush(); ok {
		t.Errorf("flush of whitespace-only remainder returned %q", rem)
	}

	// Flush resets the buffer.
	if seg.Pending() != "" {
		t.Errorf("pending after flush = %q, want empty", seg.Pending())
	}
}

func TestSegmenterWhitespaceRunStaysWithSentence(t *testing.T) {
	seg := NewSentenceSegmenter()
	got := seg.Feed("One.  \n Two. Three")
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %q", got)
	}
	if got[0] != "One.  \n " {
		t.Errorf("first sentence = %q, want whitespace run attached", got[0])
	}
	if got[1] != "Two. " {
		t.Errorf("second sentence = %q", got[1])
	}
	if seg.Pending() != "Three" {
		t.Errorf("pending = %q, want %q", seg.Pending(), "Three")
	}
}
