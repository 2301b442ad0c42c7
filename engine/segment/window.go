package segment

import "strings"

const (
	// DefaultWindowSize is the character window size for the sliding splitter.
	DefaultWindowSize = 1000
	// DefaultWindowOverlap is the character overlap between windows.
	DefaultWindowOverlap = 200
)

// Window is a character sliding-window splitter for text with little or no
// recognizable structure. Each window snaps back to the best boundary within
// its last fifth: a paragraph break, failing that a sentence end, failing
// that a space.
type Window struct {
	Size    int
	Overlap int
}

// NewWindow creates a Window splitter with defaults applied.
func NewWindow(size, overlap int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultWindowOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Window{Size: size, Overlap: overlap}
}

// Split slides a window over text and returns trimmed, non-empty chunks.
func (w *Window) Split(text string) []string {
	text = preprocess(text)
	if text == "" {
		return nil
	}
	if len(text) <= w.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + w.Size
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			end = snapBoundary(text, start, end, w.Size)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end
		if end < len(text) {
			next = end - w.Overlap
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// snapBoundary searches the last fifth of the window for a paragraph break,
// then a sentence end, then a space.
func snapBoundary(text string, start, end, size int) int {
	lo := end - size/5
	if lo < start {
		lo = start
	}

	if b := strings.LastIndex(text[lo:end], "\n\n"); b != -1 {
		return lo + b
	}

	best := -1
	for _, punct := range []string{". ", "? ", "! ", ".\n", "?\n", "!\n"} {
		if b := strings.LastIndex(text[lo:end], punct); b != -1 && lo+b > best {
			best = lo + b
		}
	}
	if best != -1 {
		return best + 1 // keep the punctuation
	}

	if b := strings.LastIndex(text[lo:end], " "); b != -1 {
		return lo + b
	}
	return end
}
