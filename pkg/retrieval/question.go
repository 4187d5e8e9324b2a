package retrieval

import (
	"regexp"
	"strings"
)

// questionPattern matches text that opens like an English question. It is a
// lossy heuristic shared by the store node (to avoid ingesting queries as
// documents) and the scorer (to avoid retrieving stored questions as answers).
var questionPattern = regexp.MustCompile(`(?i)^(what|who|when|where|why|how|is|are|can|could|would|should|do|does|did|will)\s`)

// IsQuestion reports whether text is phrased as a question: it matches a
// leading wh-word/auxiliary-verb pattern or ends in a question mark.
func IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)

	return questionPattern.MatchString(trimmed) || strings.HasSuffix(trimmed, "?")
}

// Similarity returns the Jaccard index of the two strings' lowercase word
// sets: |intersection| / |union|. 1 means identical vocabularies.
func Similarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	union := make(map[string]struct{}, len(setA)+len(setB))
	intersection := 0

	for w := range setA {
		union[w] = struct{}{}

		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	for w := range setB {
		union[w] = struct{}{}
	}

	if len(union) == 0 {
		return 0
	}

	return float64(intersection) / float64(len(union))
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}

	return set
}
