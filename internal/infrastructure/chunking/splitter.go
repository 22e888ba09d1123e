package chunking

import "strings"

// Splitter cuts flat text into bounded chunks on sentence boundaries.
// Consecutive chunks share a suffix of trailing sentences up to Overlap
// characters, so a statement cut near a boundary stays retrievable.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	sentences := s.sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []string
	var current []string
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, " "))
		if chunk != "" {
			out = append(out, chunk)
		}
		current, currentLen = s.overlapTail(current)
	}

	for _, sentence := range sentences {
		length := len([]rune(sentence))
		if currentLen > 0 && currentLen+length+1 > s.ChunkSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += length
		if len(current) > 1 {
			currentLen++ // joining space
		}
	}
	flush()
	return out
}

// overlapTail keeps the trailing sentences of a flushed chunk that fit the
// overlap budget, to seed the next chunk.
func (s *Splitter) overlapTail(sentences []string) ([]string, int) {
	if s.Overlap == 0 || len(sentences) == 0 {
		return nil, 0
	}

	var tail []string
	total := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		length := len([]rune(sentences[i]))
		if total > 0 {
			length++
		}
		if total+length > s.Overlap {
			break
		}
		total += length
		tail = append([]string{sentences[i]}, tail...)
	}
	return tail, total
}

// sentences splits on terminal punctuation followed by whitespace. A sentence
// well past the chunk size is an unbreakable run (tables, enumerations) and
// gets word-windowed instead.
func (s *Splitter) sentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)

	terminal := func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}
	emit := func() {
		sentence := strings.TrimSpace(b.String())
		b.Reset()
		if sentence == "" {
			return
		}
		if len([]rune(sentence)) > s.ChunkSize*3/2 {
			sentences = append(sentences, s.splitByWords(sentence)...)
			return
		}
		sentences = append(sentences, sentence)
	}

	for i, r := range runes {
		b.WriteRune(r)
		if terminal(r) && (i+1 == len(runes) || isSpace(runes[i+1])) {
			emit()
		}
	}
	emit()
	return sentences
}

// splitByWords windows an oversized sentence by words, overlapping a tenth of
// the overlap budget in words between windows.
func (s *Splitter) splitByWords(sentence string) []string {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return nil
	}
	overlapWords := s.Overlap / 10

	var pieces []string
	var current []string
	currentLen := 0
	for _, word := range words {
		length := len([]rune(word))
		if currentLen > 0 && currentLen+length+1 > s.ChunkSize {
			pieces = append(pieces, strings.Join(current, " "))
			if overlapWords > 0 && overlapWords < len(current) {
				current = append([]string(nil), current[len(current)-overlapWords:]...)
			} else {
				current = nil
			}
			currentLen = len([]rune(strings.Join(current, " ")))
		}
		current = append(current, word)
		currentLen += length
		if len(current) > 1 {
			currentLen++
		}
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
