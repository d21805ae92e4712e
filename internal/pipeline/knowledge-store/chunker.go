// internal/pipeline/knowledge-store/chunker.go
package knowledgestore

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits plain text into sentence-aligned fragments of roughly Size
// characters, carrying the last Overlap characters into the next fragment.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split chunks one page of text. ChunkIndex counts from zero within the call;
// Store.Ingest renumbers chunks by index position.
func (c *Chunker) Split(text, source string, page int) []DocumentChunk {
	sentences := strings.Split(strings.ReplaceAll(text, "\n", " "), ". ")

	var chunks []DocumentChunk
	current := ""
	emit := func(body string) {
		chunks = append(chunks, DocumentChunk{
			Text:       body,
			Source:     source,
			Page:       page,
			ChunkIndex: len(chunks),
		})
	}

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasSuffix(s, ".") {
			s += "."
		}

		if utf8.RuneCountInString(current)+utf8.RuneCountInString(s) > c.Size {
			if current != "" {
				emit(strings.TrimSpace(current))
				current = tail(current, c.Overlap) + " " + s
			} else {
				current = s
			}
			continue
		}

		if current == "" {
			current = s
		} else {
			current += " " + s
		}
	}

	if rest := strings.TrimSpace(current); rest != "" {
		emit(rest)
	}
	return chunks
}

// tail returns the last n runes of s, or "" when s is not longer than n.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return ""
	}
	return string(r[len(r)-n:])
}
