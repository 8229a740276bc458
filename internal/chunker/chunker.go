// Package chunker splits extracted document text into retrieval-sized
// pieces for the reader/validator pipeline, ported from
// original_source/app/ingestion/chunker.py's DocumentChunker.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"tariffstack/internal/model"
)

// Strategy selects the initial split pass before merge/split sizing.
type Strategy string

const (
	StrategyParagraph Strategy = "paragraph"
	StrategySentence  Strategy = "sentence"
	StrategyFixed     Strategy = "fixed"
)

var (
	paragraphSplit = regexp.MustCompile(`\n\n+`)
	sentenceSplit  = regexp.MustCompile(`(?:[.!?])\s+`)
)

// Chunker splits text into sized pieces, sized for vector embedding and
// LLM context windows, with precise quote-location tracking.
type Chunker struct {
	MinChunkSize int
	MaxChunkSize int
	Overlap      int
	Strategy     Strategy
}

// New builds a Chunker with the teacher-default sizes: 200 char
// minimum, 1200 char maximum, 50 char overlap, paragraph strategy.
func New() *Chunker {
	return &Chunker{
		MinChunkSize: 200,
		MaxChunkSize: 1200,
		Overlap:      50,
		Strategy:     StrategyParagraph,
	}
}

// ChunkText splits text into model.DocumentChunk values for documentID,
// tracking each chunk's position in the original text.
func (c *Chunker) ChunkText(text, documentID string) []model.DocumentChunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var raw []string
	switch c.Strategy {
	case StrategySentence:
		raw = c.splitBySentences(text)
	case StrategyFixed:
		raw = c.splitFixed(text)
	default:
		raw = c.splitByParagraphs(text)
	}

	merged := c.mergeSmallChunks(raw)

	var sized []string
	for _, chunk := range merged {
		sized = append(sized, c.splitLargeChunk(chunk)...)
	}

	positioned := positionChunks(text, sized)

	chunks := make([]model.DocumentChunk, 0, len(positioned))
	for i, p := range positioned {
		chunks = append(chunks, model.DocumentChunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			ChunkIndex: i,
			Text:       p.text,
			CharStart:  p.start,
			CharEnd:    p.end,
			TextHash:   computeHash(p.text),
		})
	}
	return chunks
}

func (c *Chunker) splitByParagraphs(text string) []string {
	parts := paragraphSplit.Split(strings.TrimSpace(text), -1)
	return nonEmptyTrimmed(parts)
}

func (c *Chunker) splitBySentences(text string) []string {
	return splitBySentences(text)
}

func splitBySentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	return nonEmptyTrimmed(parts)
}

func (c *Chunker) splitFixed(text string) []string {
	step := c.MaxChunkSize - c.Overlap
	if step <= 0 {
		step = c.MaxChunkSize
	}
	var parts []string
	for i := 0; i < len(text); i += step {
		end := i + c.MaxChunkSize
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[i:end])
	}
	return parts
}

func nonEmptyTrimmed(parts []string) []string {
	var out []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// mergeSmallChunks joins chunks below MinChunkSize into the next one,
// so a single short paragraph does not become its own undersized chunk.
func (c *Chunker) mergeSmallChunks(chunks []string) []string {
	if len(chunks) == 0 {
		return nil
	}
	var merged []string
	current := chunks[0]
	for _, chunk := range chunks[1:] {
		if len(current) < c.MinChunkSize {
			current = current + "\n\n" + chunk
		} else {
			merged = append(merged, current)
			current = chunk
		}
	}
	merged = append(merged, current)
	return merged
}

// splitLargeChunk breaks a chunk exceeding MaxChunkSize along sentence
// boundaries, hard-splitting any single sentence that alone exceeds
// MaxChunkSize.
func (c *Chunker) splitLargeChunk(text string) []string {
	if len(text) <= c.MaxChunkSize {
		return []string{text}
	}

	var result []string
	sentences := splitBySentences(text)
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence)+1 > c.MaxChunkSize {
			if current != "" {
				result = append(result, strings.TrimSpace(current))
			}
			if len(sentence) > c.MaxChunkSize {
				step := c.MaxChunkSize - c.Overlap
				if step <= 0 {
					step = c.MaxChunkSize
				}
				for i := 0; i < len(sentence); i += step {
					end := i + c.MaxChunkSize
					if end > len(sentence) {
						end = len(sentence)
					}
					result = append(result, sentence[i:end])
				}
				current = ""
			} else {
				current = sentence
			}
		} else if current != "" {
			current = current + " " + sentence
		} else {
			current = sentence
		}
	}
	if current != "" {
		result = append(result, strings.TrimSpace(current))
	}
	return result
}

type positionedChunk struct {
	text  string
	start int
	end   int
}

// positionChunks recovers each chunk's character offset in the
// original text by locating the chunk's first 50 characters starting
// just after the previous chunk's start, falling back to the previous
// chunk's end if the chunk text was altered (e.g. by merge/overlap)
// enough that an exact substring no longer exists.
func positionChunks(text string, chunks []string) []positionedChunk {
	positioned := make([]positionedChunk, 0, len(chunks))
	currentPos := 0
	prevEnd := 0
	for _, chunkText := range chunks {
		probeLen := 50
		if probeLen > len(chunkText) {
			probeLen = len(chunkText)
		}
		probe := chunkText[:probeLen]

		start := strings.Index(text[min(currentPos, len(text)):], probe)
		if start == -1 {
			start = prevEnd
		} else {
			start += currentPos
		}
		end := start + len(chunkText)
		positioned = append(positioned, positionedChunk{text: chunkText, start: start, end: end})
		currentPos = start + 1
		prevEnd = end
	}
	return positioned
}

func computeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
