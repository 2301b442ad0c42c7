// Package xref tracks internal cross-references in legal documents: which
// section a passage belongs to and which sections it refers to ("as provided
// in section 12"). Sections and REFERS_TO edges are stored in Neo4j and used
// to enrich answers with referenced-section context.
package xref

import (
	"regexp"
	"strings"
)

var (
	refRe     = regexp.MustCompile(`(?i)\bsec(?:tion|\.)\s*(\d+[a-z]?)\b`)
	headingRe = regexp.MustCompile(`(?i)^sec(?:tion|\.)\s*(\d+[a-z]?)\.\s*(.*)`)
)

// ExtractRefs returns the section numbers referenced in text, unique, in
// order of first appearance.
func ExtractRefs(text string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range refRe.FindAllStringSubmatch(text, -1) {
		n := strings.ToLower(m[1])
		if !seen[n] {
			seen[n] = true
			refs = append(refs, n)
		}
	}
	return refs
}

// HeadingOf reports the section number and heading a passage opens with,
// e.g. "SEC. 5. EFFECTIVE DATE. ..." yields ("5", "EFFECTIVE DATE"). ok is
// false when the passage does not open with a section marker.
func HeadingOf(passage string) (number, heading string, ok bool) {
	line := passage
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	number = strings.ToLower(m[1])
	heading = m[2]
	if i := strings.IndexByte(heading, '.'); i >= 0 {
		heading = heading[:i]
	}
	return number, strings.TrimSpace(heading), true
}
