package retrieval_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/retrieval"
)

func chunk(index int, content string) models.KnowledgeBaseChunk {
	return models.KnowledgeBaseChunk{Content: content, ChunkIndex: index}
}

func TestExtractKeywords_DropsStopWordsAndShortTokens(t *testing.T) {
	t.Parallel()

	keywords := retrieval.ExtractKeywords("What is the capital of France")

	assert.Equal(t, []string{"capital", "france"}, keywords)
}

func TestExtractKeywords_KeepsImportantShortWords(t *testing.T) {
	t.Parallel()

	keywords := retrieval.ExtractKeywords("where do I go when we are done")

	assert.Equal(t, []string{"i", "go", "we", "done"}, keywords)
}

func TestExtractKeywords_AllStopWords(t *testing.T) {
	t.Parallel()

	assert.Empty(t, retrieval.ExtractKeywords("what is that"))
}

func TestScoreChunks_ExcludesQuestionChunks(t *testing.T) {
	t.Parallel()

	question := "what did the teacher say about the homework assignment"
	keywords := retrieval.ExtractKeywords(question)

	scored := retrieval.ScoreChunks(question, keywords, []models.KnowledgeBaseChunk{
		chunk(0, "Where does the teacher hold the homework review session every week"),
	})

	require.Len(t, scored, 1)
	assert.Equal(t, retrieval.SkipQuestion, scored[0].SkipReason)
	assert.Zero(t, scored[0].Score)
	assert.False(t, scored[0].Relevant)
}

func TestScoreChunks_ExcludesShortChunks(t *testing.T) {
	t.Parallel()

	question := "details about the teacher"
	keywords := retrieval.ExtractKeywords(question)

	scored := retrieval.ScoreChunks(question, keywords, []models.KnowledgeBaseChunk{
		chunk(0, "the teacher"),
	})

	require.Len(t, scored, 1)
	assert.Equal(t, retrieval.SkipTooShort, scored[0].SkipReason)
	assert.Zero(t, scored[0].Score)
}

func TestScoreChunks_ExcludesNearDuplicatesOfTheQuestion(t *testing.T) {
	t.Parallel()

	question := "the history teacher always assigns extended reading material during summer break sessions"
	// Same vocabulary reordered: Jaccard similarity 1.0, well above the cutoff.
	content := "during summer break sessions the history teacher always assigns extended reading material"

	keywords := retrieval.ExtractKeywords(question)
	scored := retrieval.ScoreChunks(question, keywords, []models.KnowledgeBaseChunk{chunk(0, content)})

	require.Len(t, scored, 1)
	assert.Equal(t, retrieval.SkipTooSimilar, scored[0].SkipReason)
}

func TestScoreChunks_ScoresRelevantChunk(t *testing.T) {
	t.Parallel()

	question := "tell me about the python language"
	keywords := retrieval.ExtractKeywords(question)
	require.Equal(t, []string{"python", "language"}, keywords)

	scored := retrieval.ScoreChunks(question, keywords, []models.KnowledgeBaseChunk{
		chunk(0, "Python is a popular language used for scripting and data analysis across many industries today."),
	})

	require.Len(t, scored, 1)
	assert.True(t, scored[0].Relevant)
	assert.Equal(t, 2, scored[0].KeywordMatches)
	assert.Positive(t, scored[0].Score)
}

func TestScoreChunks_IrrelevantChunkForcedToZero(t *testing.T) {
	t.Parallel()

	question := "tell me about quantum physics"
	keywords := retrieval.ExtractKeywords(question)

	scored := retrieval.ScoreChunks(question, keywords, []models.KnowledgeBaseChunk{
		chunk(0, "The annual bake sale raised record funds for the local gardening club on Saturday."),
	})

	require.Len(t, scored, 1)
	assert.False(t, scored[0].Relevant)
	assert.Zero(t, scored[0].Score)
}

func TestTopChunks_OrdersByDescendingScoreAndCaps(t *testing.T) {
	t.Parallel()

	question := "information about the python language"
	keywords := retrieval.ExtractKeywords(question)

	filler := strings.Repeat("filler words to pass the length threshold ", 3)

	chunks := []models.KnowledgeBaseChunk{
		chunk(0, filler+"python appears once here"),
		chunk(1, "python python python language language is discussed at length in this long chunk "+filler),
		chunk(2, filler+"python and language appear in this one"),
		chunk(3, filler+"python once more in the tail"),
		chunk(4, filler+"completely unrelated gardening content"),
	}

	top := retrieval.TopChunks(question, keywords, chunks)

	require.Len(t, top, 3)
	assert.Equal(t, 1, top[0].ChunkIndex)

	indices := []int{top[0].ChunkIndex, top[1].ChunkIndex, top[2].ChunkIndex}
	assert.NotContains(t, indices, 4)
}

func TestTopChunks_StableForEqualScores(t *testing.T) {
	t.Parallel()

	question := "notes about the python language"
	keywords := retrieval.ExtractKeywords(question)

	filler := strings.Repeat("neutral filler words occupying space in the chunk body ", 2)
	same := "python " + filler

	chunks := []models.KnowledgeBaseChunk{chunk(0, same), chunk(1, same), chunk(2, same)}

	first := retrieval.TopChunks(question, keywords, chunks)
	second := retrieval.TopChunks(question, keywords, chunks)

	require.Len(t, first, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{first[0].ChunkIndex, first[1].ChunkIndex, first[2].ChunkIndex})
	assert.Equal(t, first, second)
}

func TestTopChunks_SemanticExpansion(t *testing.T) {
	t.Parallel()

	question := "who is my teacher"
	keywords := retrieval.ExtractKeywords(question)
	require.Contains(t, keywords, "teacher")

	// Neither chunk contains "teacher"; the first carries two related words
	// from the expansion table and must outrank the second.
	expanded := "In my school the professor runs every lecture on Mondays and grades all submissions weekly."
	plain := "In my school the gym stays open on Mondays and all students are welcome after hours."

	top := retrieval.TopChunks(question, keywords, []models.KnowledgeBaseChunk{
		chunk(0, plain),
		chunk(1, expanded),
	})

	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].ChunkIndex)
}
