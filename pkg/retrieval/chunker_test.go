package retrieval_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/retrieval"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}

	return strings.Join(parts, " ")
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	text := "just a few words of text"
	chunks := retrieval.Chunk(text, 200, 300)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunk_EmptyText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, retrieval.Chunk("", 200, 300))
	assert.Empty(t, retrieval.Chunk("   \n\t  ", 200, 300))
}

func TestChunk_TotalCoverage(t *testing.T) {
	t.Parallel()

	// Rejoining all chunks must reproduce the original word sequence.
	for _, n := range []int{1, 199, 200, 299, 300, 301, 650, 1000} {
		text := words(n)
		chunks := retrieval.Chunk(text, 200, 300)

		assert.Equal(t, text, strings.Join(chunks, " "), "word count %d", n)

		for _, chunk := range chunks {
			assert.NotZero(t, retrieval.WordCount(chunk))
		}
	}
}

func TestChunk_Bounds(t *testing.T) {
	t.Parallel()

	chunks := retrieval.Chunk(words(1000), 200, 300)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		count := retrieval.WordCount(chunk)
		assert.LessOrEqual(t, count, 300)

		// Only the final chunk may fall short of the minimum.
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, count, 200)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	t.Parallel()

	text := words(750)
	assert.Equal(t, retrieval.Chunk(text, 200, 300), retrieval.Chunk(text, 200, 300))
}

func TestChunkDefault_UsesStandardBounds(t *testing.T) {
	t.Parallel()

	chunks := retrieval.ChunkDefault(words(600))

	require.Len(t, chunks, 2)
	assert.Equal(t, 300, retrieval.WordCount(chunks[0]))
	assert.Equal(t, 300, retrieval.WordCount(chunks[1]))
}

func TestWordCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, retrieval.WordCount(""))
	assert.Equal(t, 3, retrieval.WordCount("one  two\nthree"))
}
