package chunker

import (
	"regexp"
	"strings"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
)

// normativeKeywordRe matches the binding RFC 2119 keyword set. Matching
// requires the keyword to appear as an isolated uppercase word so prose
// using "must" in its ordinary lowercase sense is never misclassified (spec
// I4 "deterministic... classification").
var normativeKeywordRe = regexp.MustCompile(`\b(MUST NOT|SHALL NOT|MUST|SHALL|SHOULD NOT|SHOULD|REQUIRED|RECOMMENDED)\b`)

// informativeKeywordRe matches the non-binding RFC 2119 keyword set, which
// I4 requires to classify as informative even though MAY/OPTIONAL share a
// sentence with binding language often enough to be worth a distinct regex.
var informativeKeywordRe = regexp.MustCompile(`\b(MAY|OPTIONAL|CAN|NOTE|EXAMPLE|INFORMATIVE)\b`)

// classifyNormative implements I4: the same content always classifies the
// same way. A section-level (normative)/(informative) marker, when present,
// overrides token-level evidence; otherwise any binding keyword classifies
// the content as normative, and failing that any non-binding keyword
// classifies it as informative, wherever in the text either appears;
// content with neither classifies as unknown.
func classifyNormative(text string, sectionMarker kchunk.Normative) kchunk.Normative {
	if sectionMarker == kchunk.NormativeYes || sectionMarker == kchunk.NormativeNo {
		return sectionMarker
	}
	if normativeKeywordRe.MatchString(text) {
		return kchunk.NormativeYes
	}
	if informativeKeywordRe.MatchString(text) {
		return kchunk.NormativeNo
	}
	return kchunk.NormativeUnknown
}

// sectionMarkerRe matches a section heading's explicit "(normative)" or
// "(informative)" marker, case-insensitively, as I4 describes.
var sectionMarkerRe = regexp.MustCompile(`(?i)\((normative|informative)\)`)

// extractSectionMarker reports the normative override a section heading
// itself carries, or kchunk.NormativeUnknown if the heading has none.
func extractSectionMarker(heading string) kchunk.Normative {
	m := sectionMarkerRe.FindStringSubmatch(heading)
	if m == nil {
		return kchunk.NormativeUnknown
	}
	if strings.EqualFold(m[1], "normative") {
		return kchunk.NormativeYes
	}
	return kchunk.NormativeNo
}

// inheritClause returns the nearest ancestor section's clause number when a
// chunk's own text carried none, implementing the "clause_number is
// inherited from the nearest ancestor section that has one" rule.
func inheritClause(hierarchy []string, clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return clauses[len(clauses)-1]
}

// leadingClauseRe extracts a clause number a chunk's own text opens with,
// independent of any section header (e.g. a paragraph beginning "5.2.1 Scope
// applies to..."), taking precedence over inheritance per spec I3's
// hierarchy-consistency rule.
var leadingClauseRe = regexp.MustCompile(`^(\d+(?:\.\d+){0,4})\s+\S`)

func extractClause(text string) string {
	m := leadingClauseRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
