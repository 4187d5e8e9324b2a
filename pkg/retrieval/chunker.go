// Package retrieval implements text chunking and keyword-relevance scoring
// for knowledge base search.
package retrieval

import "strings"

const (
	DefaultMinChunkWords = 200
	DefaultMaxChunkWords = 300
)

// Chunk splits text on whitespace and groups the words into chunks of
// minWords to maxWords. The buffer is flushed once it holds at least minWords
// and either reached maxWords or consumed the final word; any remaining
// partial buffer becomes a final, possibly short, chunk. Every input word
// appears in exactly one chunk, in original order.
func Chunk(text string, minWords, maxWords int) []string {
	words := strings.Fields(text)
	chunks := make([]string, 0)
	current := make([]string, 0, maxWords)

	for i, word := range words {
		current = append(current, word)

		if len(current) >= minWords && (len(current) >= maxWords || i == len(words)-1) {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// ChunkDefault chunks with the standard 200-300 word bounds.
func ChunkDefault(text string) []string {
	return Chunk(text, DefaultMinChunkWords, DefaultMaxChunkWords)
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
