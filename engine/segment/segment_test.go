package segment

import (
	"strings"
	"testing"
)

func TestSegmentEmptyInput(t *testing.T) {
	s := New(Options{})
	for _, in := range []string{"", "   ", "\n\n\t"} {
		if got := s.Segment(in); got != nil {
			t.Errorf("Segment(%q) = %v, want nil", in, got)
		}
	}
}

func TestSegmentNoHeadingsSinglePassage(t *testing.T) {
	s := New(Options{})
	text := "This bill does one thing. It has no section headings at all.\n\nJust two short paragraphs."

	got := s.Segment(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 passage, got %d: %v", len(got), got)
	}
	if got[0] != strings.TrimSpace(text) {
		t.Errorf("single passage should be the whole trimmed text, got %q", got[0])
	}
}

func TestSegmentSplitsAtSectionHeadings(t *testing.T) {
	s := New(Options{})
	text := "SEC. 1. SHORT TITLE.\nThis Act may be cited as the Example Act.\n\n" +
		"SEC. 2. DEFINITIONS.\nIn this Act, the term agency means an Executive agency.\n\n" +
		"SEC. 3. AUTHORIZATION.\nThere are authorized to be appropriated such sums as necessary."

	got := s.Segment(text)
	if len(got) != 3 {
		t.Fatalf("expected 3 passages, got %d: %v", len(got), got)
	}
	for i, want := range []string{"SEC. 1.", "SEC. 2.", "SEC. 3."} {
		if !strings.HasPrefix(got[i], want) {
			t.Errorf("passage %d should start with %q, got %q", i, want, got[i])
		}
	}
}

func TestSegmentInlineHeadingForcedOntoOwnLine(t *testing.T) {
	s := New(Options{})
	// The second heading runs on from the first section's text.
	text := "SEC. 1. SHORT TITLE.\nThis Act may be cited as the Example Act. SEC. 2. PURPOSE.\nThe purpose of this Act is clarity."

	got := s.Segment(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 passages, got %d: %v", len(got), got)
	}
	if !strings.HasPrefix(got[1], "SEC. 2.") {
		t.Errorf("second passage should start at the inline heading, got %q", got[1])
	}
	if strings.Contains(got[0], "SEC. 2.") {
		t.Errorf("first passage should not contain the next heading: %q", got[0])
	}
}

func TestSegmentCaseInsensitiveHeadings(t *testing.T) {
	s := New(Options{})
	text := "Section 1. Short title.\nCited as the Example Act.\n\nsec. 2. Purpose.\nClarity."

	got := s.Segment(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 passages, got %d: %v", len(got), got)
	}
}

func TestSegmentAllCapsTitleStartsSection(t *testing.T) {
	s := New(Options{})
	text := "TITLE I—GENERAL PROVISIONS\nGeneral matter under title one.\n\n" +
		"TITLE II—ENFORCEMENT\nEnforcement matter under title two."

	got := s.Segment(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 passages, got %d: %v", len(got), got)
	}
	if !strings.HasPrefix(got[1], "TITLE II") {
		t.Errorf("second passage should start at the second title, got %q", got[1])
	}
}

func TestSegmentOversizedSectionSplitsAtSubsections(t *testing.T) {
	s := New(Options{TargetWords: 30})

	sub := func(letter, filler string) string {
		return "(" + letter + ") " + strings.Repeat(filler+" ", 25) + "end."
	}
	text := "SEC. 1. BIG SECTION.\n" + sub("a", "alpha") + "\n" + sub("b", "beta") + "\n" + sub("c", "gamma") +
		"\n\nSEC. 2. SMALL.\nShort text."

	got := s.Segment(text)
	if len(got) < 4 {
		t.Fatalf("expected the oversized section to split, got %d passages: %v", len(got), got)
	}
	// No passage should exceed the target by a whole subsection.
	for _, p := range got {
		if n := len(strings.Fields(p)); n > 60 {
			t.Errorf("passage exceeds expected size (%d words): %q", n, p[:40])
		}
	}
	last := got[len(got)-1]
	if !strings.HasPrefix(last, "SEC. 2.") {
		t.Errorf("final passage should be the small section, got %q", last)
	}
}

func TestSegmentSingleOversizedSectionSplits(t *testing.T) {
	// One heading still counts as structure: an oversized lone section must
	// split at its subsections, not collapse to a whole-document passage.
	s := New(Options{TargetWords: 30})

	sub := func(letter, filler string) string {
		return "(" + letter + ") " + strings.Repeat(filler+" ", 25) + "end."
	}
	text := "SEC. 1. ONLY SECTION.\n" + sub("a", "alpha") + "\n" + sub("b", "beta") + "\n" + sub("c", "gamma")

	got := s.Segment(text)
	if len(got) < 2 {
		t.Fatalf("expected the oversized section to split, got %d passage(s): %v", len(got), got)
	}
	for _, p := range got {
		if n := len(strings.Fields(p)); n > 60 {
			t.Errorf("passage exceeds expected size (%d words): %q", n, p[:40])
		}
	}
}

func TestSegmentNeverSplitsMidSentence(t *testing.T) {
	s := New(Options{TargetWords: 10})
	var b strings.Builder
	b.WriteString("SEC. 1. LONG PROSE.\n")
	for i := 0; i < 20; i++ {
		b.WriteString("This sentence has exactly seven words in it. ")
	}
	b.WriteString("\n\nSEC. 2. TAIL.\nDone.")

	for _, p := range s.Segment(b.String()) {
		trimmed := strings.TrimSpace(p)
		last := trimmed[len(trimmed)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("passage ends mid-sentence: %q", trimmed)
		}
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	// Every word of the input must survive into exactly one passage, in order.
	s := New(Options{TargetWords: 20})
	text := "SEC. 1. FIRST.\nAlpha bravo charlie delta echo.\n\n" +
		"SEC. 2. SECOND.\nFoxtrot golf hotel india juliett kilo lima mike november oscar papa " +
		"quebec romeo sierra tango uniform victor whiskey xray yankee zulu one two three four. " +
		"Five six seven eight nine ten eleven twelve."

	passages := s.Segment(text)
	want := strings.Fields(preprocess(text))
	var got []string
	for _, p := range passages {
		got = append(got, strings.Fields(p)...)
	}
	if len(got) != len(want) {
		t.Fatalf("word count mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("word %d differs: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSegmentFormFeedsRemoved(t *testing.T) {
	s := New(Options{})
	got := s.Segment("SEC. 1. A.\nText\fwith feed.\n\nSEC. 2. B.\nMore.")
	for _, p := range got {
		if strings.ContainsRune(p, '\f') {
			t.Errorf("passage contains form feed: %q", p)
		}
	}
}

func TestIsHeading(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"SEC. 12. APPROPRIATIONS.", true},
		{"Section 3. Definitions.", true},
		{"SEC. 101A. SPECIAL RULE.", true},
		{"SHORT TITLE", true},
		{"TITLE IV—MISCELLANEOUS", true},
		{"", false},
		{"the section 3 report", false},
		{"A sentence That Mentions Sec. 5. in passing", false},
		{strings.Repeat("LOUD ", 20), false}, // too long for a title
	}
	for _, c := range cases {
		if got := isHeading(c.line); got != c.want {
			t.Errorf("isHeading(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one? Third!\nFourth without terminal")
	want := []string{"First one.", "Second one?", "Third!", "Fourth without terminal"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesNoFalseSplitOnDecimal(t *testing.T) {
	got := splitSentences("Funding is 3.5 million dollars. Second sentence.")
	if len(got) != 2 {
		t.Fatalf("decimal point should not split: got %v", got)
	}
}
