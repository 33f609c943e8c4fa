package ingestion_engine

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// chunkSeparators is tried in order: paragraph, line, sentence, word, character.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text into overlapping, size-bounded chunks.
// Sizes are measured in characters (runes).
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
	}
}

// Chunk returns trimmed, non-empty chunks in document order.
// Blank input yields no chunks.
func (c *Chunker) Chunk(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
