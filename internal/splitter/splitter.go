// Package splitter cuts document text into retrieval chunks. It splits
// recursively on progressively finer separators (paragraphs, lines,
// sentences, words) so chunk boundaries land on natural breaks, and carries
// a configurable overlap between adjacent chunks.
package splitter

import "strings"

var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter produces chunks of at most ChunkSize characters with
// ChunkOverlap characters carried over between neighbors.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// Section is the splitter profile for retrieval context chunks.
func Section() Splitter { return Splitter{ChunkSize: 1000, ChunkOverlap: 200} }

// Citation is the splitter profile for fine-grained citation snippets.
func Citation() Splitter { return Splitter{ChunkSize: 400, ChunkOverlap: 50} }

// Split cuts text into chunks. Empty and whitespace-only chunks are dropped.
func (s Splitter) Split(text string) []string {
	var out []string
	for _, chunk := range s.split(text, separators) {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func (s Splitter) split(text string, seps []string) []string {
	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardCut(text)
	}

	parts := strings.Split(text, sep)

	var chunks []string
	var pending []string
	for _, part := range parts {
		if len(part) < s.ChunkSize {
			pending = append(pending, part)
			continue
		}
		// oversized part: flush what we have, then recurse with finer
		// separators
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending, sep)...)
			pending = nil
		}
		chunks = append(chunks, s.split(part, rest)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending, sep)...)
	}
	return chunks
}

// pickSeparator returns the coarsest separator present in text and the finer
// ones after it. The empty separator always matches.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge greedily joins parts back together up to ChunkSize, keeping the last
// ChunkOverlap characters of each chunk as the start of the next.
func (s Splitter) merge(parts []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0

	joined := func() int { return total + len(sep)*max(len(window)-1, 0) }

	for _, part := range parts {
		if len(window) > 0 && joined()+len(part)+len(sep) > s.ChunkSize {
			chunks = append(chunks, strings.Join(window, sep))
			for len(window) > 0 && (joined() > s.ChunkOverlap ||
				joined()+len(part)+len(sep) > s.ChunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, part)
		total += len(part)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, sep))
	}
	return chunks
}

// hardCut slices text at fixed positions when no separator is available.
func (s Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.ChunkOverlap
	if step <= 0 {
		step = s.ChunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
