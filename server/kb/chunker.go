package kb

import (
	"strings"
	"unicode"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

const (
	// DefaultChunkSize is the maximum character count per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the character count carried over between
	// consecutive chunks so context is not lost at boundaries.
	DefaultChunkOverlap = 200
)

// ChunkDocument splits a document into overlapping chunks sized for
// embedding. Ordinals are contiguous starting at 0. It preserves paragraph
// boundaries when possible, falls back to sentence and word boundaries, and
// hard-cuts only when a single unit exceeds maxSize.
func ChunkDocument(doc Document, maxSize, overlap int) ([]Chunk, error) {
	pieces, err := splitText(doc.Text, maxSize, overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = Chunk{
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       text,
		}
	}
	return chunks, nil
}

// splitText splits content into at-most-maxSize pieces with the configured
// overlap carried from each piece into the next.
func splitText(content string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 {
		return nil, pipeerr.InvalidChunkConfig("max chunk size must be positive")
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, pipeerr.InvalidChunkConfig("overlap must be in [0, max chunk size)")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if len(content) <= maxSize {
		return []string{content}, nil
	}

	paragraphs := splitParagraphs(content)

	var chunks []string
	var current strings.Builder

	for _, para := range paragraphs {
		// Close the current chunk when the next paragraph would not fit,
		// seeding the successor with the overlap tail.
		if current.Len() > 0 && current.Len()+len(para)+2 > maxSize {
			chunks = append(chunks, current.String())
			tail := overlapTail(current.String(), overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)

		// A single oversized paragraph is force-split at sentence or word
		// boundaries until it fits.
		for current.Len() > maxSize {
			text := current.String()
			breakPoint := findBreakPoint(text[:maxSize])
			chunks = append(chunks, strings.TrimSpace(text[:breakPoint]))
			// Cap the carried tail below the cut point so the loop always
			// makes progress even with large configured overlaps.
			effOverlap := overlap
			if effOverlap > breakPoint/2 {
				effOverlap = breakPoint / 2
			}
			tail := overlapTail(text[:breakPoint], effOverlap)
			remaining := strings.TrimSpace(text[breakPoint:])
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				if remaining != "" {
					current.WriteString(" ")
				}
			}
			current.WriteString(remaining)
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks, nil
}

// splitParagraphs splits content into non-empty paragraphs, joining single
// line breaks inside a paragraph with spaces.
func splitParagraphs(content string) []string {
	// Blank lines must survive the split; they are the paragraph breaks.
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")

	var result []string
	var current strings.Builder
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// overlapTail returns the last overlap characters of text, snapped forward
// to a word boundary so the carried context starts on a whole word.
func overlapTail(text string, overlap int) string {
	if overlap == 0 {
		return ""
	}
	text = strings.TrimSpace(text)
	if len(text) <= overlap {
		return text
	}
	tail := text[len(text)-overlap:]
	if idx := strings.IndexAny(tail, " \t"); idx >= 0 {
		return strings.TrimSpace(tail[idx+1:])
	}
	return tail
}

// findBreakPoint finds a good position to split text, preferring sentence
// ends, then word boundaries in the second half, then a hard cut.
func findBreakPoint(text string) int {
	for i := len(text) - 1; i >= len(text)/2; i-- {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			if i == len(text)-1 || unicode.IsSpace(rune(text[i+1])) {
				return i + 1
			}
		}
	}
	for i := len(text) - 1; i >= len(text)/2; i-- {
		if unicode.IsSpace(rune(text[i])) {
			return i
		}
	}
	return len(text)
}
