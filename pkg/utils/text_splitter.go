package utils

// Segment is a window of the source text. Start and End are rune offsets,
// so consecutive segments overlap on [next.Start, prev.End).
type Segment struct {
	Text  string
	Start int
	End   int
}

// breakPoints are tried in order when looking for a place to end a chunk.
var breakPoints = []string{"\n\n", "\n", ". ", "! ", "? ", ", ", " "}

// SplitText splits a long string into chunks of at most chunkSize runes with
// overlap runes shared between neighbours.
func SplitText(text string, chunkSize int, overlap int) []string {
	segments := SplitSegments(text, chunkSize, overlap)
	chunks := make([]string, len(segments))
	for i, s := range segments {
		chunks[i] = s.Text
	}
	return chunks
}

// SplitSegments is SplitText with offsets. Chunks prefer to end on a paragraph,
// line, sentence or word boundary found in the second half of the window;
// otherwise the cut is a hard one. No rune of the input is dropped.
func SplitSegments(text string, chunkSize int, overlap int) []Segment {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}
	if chunkSize <= 0 || total <= chunkSize {
		return []Segment{{Text: text, Start: 0, End: total}}
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var segments []Segment
	start := 0
	for {
		end := start + chunkSize
		if end >= total {
			segments = append(segments, Segment{Text: string(runes[start:total]), Start: start, End: total})
			break
		}

		end = findBreak(runes, start+chunkSize/2, end)
		segments = append(segments, Segment{Text: string(runes[start:end]), Start: start, End: end})

		next := alignToWord(runes, end-overlap, end)
		if next <= start {
			next = end
		}
		start = next
	}

	return segments
}

// findBreak returns the position just after the last preferred separator in
// runes[from:to], or to when there is none.
func findBreak(runes []rune, from, to int) int {
	for _, sep := range breakPoints {
		sepRunes := []rune(sep)
		for i := to - len(sepRunes); i >= from; i-- {
			if hasPrefixAt(runes, i, sepRunes) {
				return i + len(sepRunes)
			}
		}
	}
	return to
}

// alignToWord moves pos forward to the start of the next word, staying below limit.
func alignToWord(runes []rune, pos, limit int) int {
	if pos <= 0 {
		return 0
	}
	for i := pos; i < limit; i++ {
		if runes[i-1] == ' ' || runes[i-1] == '\n' {
			return i
		}
	}
	return pos
}

func hasPrefixAt(runes []rune, at int, prefix []rune) bool {
	if at < 0 || at+len(prefix) > len(runes) {
		return false
	}
	for j, r := range prefix {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
