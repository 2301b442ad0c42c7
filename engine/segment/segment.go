// Package segment splits long, section-structured legal text into bounded,
// semantically coherent passages. Splitting aligns with the document's own
// structure: top-level section headings always begin a new passage, oversized
// sections are split at subsection, paragraph, and finally sentence
// boundaries. A passage boundary never falls inside a sentence.
package segment

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultTargetWords is the soft per-passage length target.
const DefaultTargetWords = 800

// Options configures a Segmenter.
type Options struct {
	// TargetWords is the soft word-count target per passage. Zero means
	// DefaultTargetWords.
	TargetWords int
}

// Segmenter turns one document's raw text into an ordered list of passages.
type Segmenter struct {
	target int
}

// New creates a Segmenter.
func New(opts Options) *Segmenter {
	t := opts.TargetWords
	if t <= 0 {
		t = DefaultTargetWords
	}
	return &Segmenter{target: t}
}

var (
	// Top-level section headings: "SEC. 5.", "SECTION 5.", "Section 5.".
	secHeadingRe = regexp.MustCompile(`^(?i:sec\.|section)\s*\d+[A-Za-z]?\.`)
	// Mid-line "SEC. N." markers get forced onto their own line.
	inlineSecRe = regexp.MustCompile(`([^\n])(SEC\. \d+[A-Z]?\.)`)
	blankRunRe  = regexp.MustCompile(`\n[ \t]*\n+`)
	// Lettered or numbered subsection openers: "(a)", "(1)", "(A)".
	subsectionRe = regexp.MustCompile(`^\(([a-z]|[A-Z]|\d+)\)`)
)

// Segment splits document text into ordered passage strings. Passages are
// trimmed; empty ones are dropped. Empty or whitespace-only input yields nil.
// A document with no recognizable headings yields a single passage equal to
// the whole trimmed text.
func (s *Segmenter) Segment(text string) []string {
	cleaned := preprocess(text)
	if cleaned == "" {
		return nil
	}

	sections, structured := splitSections(cleaned)
	if !structured {
		// No structure to work with: whole document as one passage.
		return []string{cleaned}
	}

	var passages []string
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if wordCount(section) <= s.target {
			passages = append(passages, section)
			continue
		}
		passages = append(passages, s.splitOversized(section)...)
	}
	return passages
}

// preprocess cleans and normalizes text before segmentation: form feeds
// removed, blank-line runs collapsed, section headings forced onto their own
// lines.
func preprocess(text string) string {
	text = strings.ReplaceAll(text, "\f", " ")
	text = inlineSecRe.ReplaceAllString(text, "$1\n$2")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitSections splits text at top-level heading lines. The heading line
// stays attached to the content that follows it. Text before the first
// heading forms its own section. The second return reports whether any
// heading line was detected at all; a single section behind a heading is
// still structured and subject to oversize splitting.
func splitSections(text string) ([]string, bool) {
	lines := strings.Split(text, "\n")
	var sections []string
	var cur []string
	structured := false

	flush := func() {
		if len(cur) == 0 {
			return
		}
		joined := strings.Join(cur, "\n")
		if strings.TrimSpace(joined) != "" {
			sections = append(sections, joined)
		}
		cur = nil
	}

	for _, line := range lines {
		if isHeading(line) {
			structured = true
			flush()
		}
		cur = append(cur, line)
	}
	flush()
	return sections, structured
}

// isHeading reports whether a line opens a new top-level section: a "SEC. N."
// style heading or a short all-caps title line.
func isHeading(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if secHeadingRe.MatchString(t) {
		return true
	}
	return isAllCapsTitle(t)
}

// isAllCapsTitle matches short all-caps heading lines like "SHORT TITLE" or
// "TITLE I—GENERAL PROVISIONS".
func isAllCapsTitle(t string) bool {
	if len(t) > 80 || len(strings.Fields(t)) > 12 {
		return false
	}
	hasUpper := false
	for _, r := range t {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

// splitOversized breaks a section that exceeds the target at the next lower
// structural level: subsections, then paragraphs, then sentence packing.
func (s *Segmenter) splitOversized(section string) []string {
	blocks := splitBlocks(section, isSubsectionStart)
	if len(blocks) <= 1 {
		blocks = strings.Split(section, "\n\n")
	}
	return s.pack(blocks)
}

// pack greedily groups blocks into passages of up to target words. A single
// block over the target is packed sentence by sentence.
func (s *Segmenter) pack(blocks []string) []string {
	var passages []string
	var cur strings.Builder
	curWords := 0

	flush := func() {
		p := strings.TrimSpace(cur.String())
		if p != "" {
			passages = append(passages, p)
		}
		cur.Reset()
		curWords = 0
	}

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		w := wordCount(block)
		if w > s.target {
			flush()
			passages = append(passages, s.packSentences(block)...)
			continue
		}
		if curWords > 0 && curWords+w > s.target {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
		curWords += w
	}
	flush()
	return passages
}

// packSentences is the last resort for a block with no usable structure:
// sentences are grouped up to the target. A split point always coincides with
// sentence-ending punctuation; a single sentence longer than the target stays
// whole.
func (s *Segmenter) packSentences(block string) []string {
	sentences := splitSentences(block)
	if len(sentences) <= 1 {
		return []string{strings.TrimSpace(block)}
	}

	var passages []string
	var cur strings.Builder
	curWords := 0
	for _, sent := range sentences {
		w := wordCount(sent)
		if curWords > 0 && curWords+w > s.target {
			passages = append(passages, strings.TrimSpace(cur.String()))
			cur.Reset()
			curWords = 0
		}
		if cur.Len() > 0 {
			cur.WriteRune(' ')
		}
		cur.WriteString(sent)
		curWords += w
	}
	if p := strings.TrimSpace(cur.String()); p != "" {
		passages = append(passages, p)
	}
	return passages
}

// splitBlocks splits text into line groups, starting a new group wherever
// startsBlock matches. All lines are preserved.
func splitBlocks(text string, startsBlock func(string) bool) []string {
	lines := strings.Split(text, "\n")
	var blocks []string
	var cur []string
	for _, line := range lines {
		if startsBlock(line) && len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}

func isSubsectionStart(line string) bool {
	return subsectionRe.MatchString(strings.TrimSpace(line))
}

// splitSentences splits text into sentences on terminal punctuation followed
// by whitespace, or on newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if r == '\n' || i == len(text)-1 || (i+1 < len(text) && unicode.IsSpace(rune(text[i+1]))) {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
