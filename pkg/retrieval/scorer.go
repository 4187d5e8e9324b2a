package retrieval

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ragline/ragline/pkg/models"
)

// Scoring parameters. The thresholds are deliberately low to favor recall;
// downstream behavior is pinned to these exact values.
const (
	TopK = 3

	exactMatchWeight    = 15
	earlyPositionBonus  = 10
	titlePositionBonus  = 5
	partialMatchWeight  = 3
	semanticMatchWeight = 8

	minKeywordMatches = 1
	minScore          = 5

	minChunkLength       = 50
	maxQuestionSimilarity = 0.8
)

// stopWords are discarded during keyword extraction.
var stopWords = map[string]struct{}{
	"what": {}, "is": {}, "are": {}, "the": {}, "a": {}, "an": {}, "how": {},
	"why": {}, "when": {}, "where": {}, "who": {}, "which": {}, "can": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "should": {},
	"could": {}, "about": {}, "tell": {}, "me": {}, "explain": {}, "please": {},
	"help": {}, "find": {}, "show": {}, "give": {},
}

// importantShortWords survive the length filter even though they are short.
var importantShortWords = map[string]struct{}{
	"i": {}, "my": {}, "am": {}, "go": {}, "be": {}, "he": {}, "we": {}, "it": {},
}

// semanticMap expands a keyword to related words that count as weaker matches.
var semanticMap = map[string][]string{
	"name":     {"called", "named", "known as", "i am", "my name", "sir", "mr", "mrs", "ms", "dr"},
	"teacher":  {"sir", "professor", "instructor", "tutor", "teaches", "class", "lecture"},
	"age":      {"years old", "born", "birthday", "old am i"},
	"work":     {"job", "career", "employed", "company", "office"},
	"live":     {"home", "address", "residence", "located", "based"},
	"like":     {"love", "enjoy", "prefer", "favorite", "fond"},
	"eat":      {"food", "meal", "diet", "consume", "taste"},
	"language": {"programming", "code", "coding", "develop"},
	"family":   {"brother", "sister", "parent", "mother", "father"},
	"subject":  {"math", "science", "english", "history", "class", "course", "studying", "study"},
	"math":     {"mathematics", "calculus", "algebra", "geometry", "arithmetic"},
	"class":    {"lecture", "lesson", "course", "session", "tomorrow", "today"},
	"studying": {"study", "learning", "preparing", "reading", "class", "subject"},
}

// SkipReason explains why a chunk was excluded from scoring.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipQuestion   SkipReason = "question"
	SkipTooShort   SkipReason = "too_short"
	SkipTooSimilar SkipReason = "too_similar"
)

// ScoredChunk pairs a chunk with its relevance analysis.
type ScoredChunk struct {
	Chunk          models.KnowledgeBaseChunk
	Score          int
	KeywordMatches int
	Relevant       bool
	SkipReason     SkipReason
}

// ExtractKeywords lowercases and tokenizes the question, drops stop words and
// short tokens, but retains the short-word allowlist. An empty result means
// the caller should surface a clarifying message instead of searching.
func ExtractKeywords(question string) []string {
	tokens := strings.Fields(strings.ToLower(question))
	keywords := make([]string, 0, len(tokens))

	for _, token := range tokens {
		if _, important := importantShortWords[token]; important {
			keywords = append(keywords, token)

			continue
		}

		if len(token) <= 2 {
			continue
		}

		if _, stop := stopWords[token]; stop {
			continue
		}

		keywords = append(keywords, token)
	}

	return keywords
}

// ScoreChunks scores every chunk against the keywords and returns the
// analysis in original chunk order. Chunks that look like questions, are
// shorter than 50 characters, or share more than 80% of their vocabulary with
// the question are forced to score 0.
func ScoreChunks(question string, keywords []string, chunks []models.KnowledgeBaseChunk) []ScoredChunk {
	scored := make([]ScoredChunk, 0, len(chunks))

	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)

		if reason := exclusionReason(question, content); reason != SkipNone {
			scored = append(scored, ScoredChunk{Chunk: chunk, SkipReason: reason})

			continue
		}

		score := 0
		keywordMatches := 0

		for _, keyword := range keywords {
			exact := countWordMatches(content, keyword)
			if exact > 0 {
				keywordMatches++
				score += exact * exactMatchWeight

				if strings.Contains(prefix(content, 100), keyword) {
					score += earlyPositionBonus
				}

				if strings.Contains(prefix(content, 50), keyword) {
					score += titlePositionBonus
				}
			}

			partial := strings.Count(content, keyword) - exact
			if partial > 0 {
				score += partial * partialMatchWeight
			}

			if semantic := countSemanticMatches(keyword, content); semantic > 0 {
				score += semantic * semanticMatchWeight
			}
		}

		relevant := keywordMatches >= minKeywordMatches && score >= minScore
		if !relevant {
			score = 0
		}

		scored = append(scored, ScoredChunk{
			Chunk:          chunk,
			Score:          score,
			KeywordMatches: keywordMatches,
			Relevant:       relevant,
		})
	}

	return scored
}

// TopChunks returns the TopK relevant chunks ordered by descending score.
// The sort is stable: equal-score chunks keep their original order.
func TopChunks(question string, keywords []string, chunks []models.KnowledgeBaseChunk) []models.KnowledgeBaseChunk {
	scored := ScoreChunks(question, keywords, chunks)

	relevant := make([]ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if sc.Relevant && sc.Score > 0 {
			relevant = append(relevant, sc)
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})

	if len(relevant) > TopK {
		relevant = relevant[:TopK]
	}

	top := make([]models.KnowledgeBaseChunk, 0, len(relevant))
	for _, sc := range relevant {
		top = append(top, sc.Chunk)
	}

	return top
}

func exclusionReason(question, content string) SkipReason {
	switch {
	case IsQuestion(content):
		return SkipQuestion
	case len(strings.TrimSpace(content)) < minChunkLength:
		return SkipTooShort
	case Similarity(strings.ToLower(question), content) > maxQuestionSimilarity:
		return SkipTooSimilar
	default:
		return SkipNone
	}
}

// countWordMatches counts whole-word occurrences of keyword in content.
func countWordMatches(content, keyword string) int {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return 0
	}

	return len(re.FindAllStringIndex(content, -1))
}

func countSemanticMatches(keyword, content string) int {
	matches := 0
	for _, related := range semanticMap[strings.ToLower(keyword)] {
		if strings.Contains(content, related) {
			matches++
		}
	}

	return matches
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
