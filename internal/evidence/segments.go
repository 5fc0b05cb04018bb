// Package evidence turns retrieved resume chunks into render-ready spans.
//
// Chunks arrive unsorted and may overlap. Build sorts them by (start, end)
// as received and sweeps left to right, clamping each one to the text as it
// goes. Text already covered by an earlier chunk is never highlighted again,
// so a later overlapping chunk is cut to the uncovered tail and a fully
// contained one produces nothing. Offsets count characters (code points),
// matching the scoring service.
package evidence

import (
	"cmp"
	"encoding/json"
	"slices"
	"unicode/utf8"

	"github.com/spigell/resume-scorer/internal/scoring"
)

// Kind tells plain text from highlighted evidence.
type Kind string

const (
	KindPlain     Kind = "plain"
	KindHighlight Kind = "highlight"
)

// Segment is a span of the resume text. Start and End are character offsets.
// ChunkID and Similarity are only set for highlights.
type Segment struct {
	Kind       Kind    `json:"kind"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	ChunkID    int     `json:"chunk_id,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// MarshalJSON always writes chunk_id and similarity for highlights, chunk 0
// and a zero similarity included, and never for plain text.
func (s Segment) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind       Kind     `json:"kind"`
		Text       string   `json:"text"`
		Start      int      `json:"start"`
		End        int      `json:"end"`
		ChunkID    *int     `json:"chunk_id,omitempty"`
		Similarity *float64 `json:"similarity,omitempty"`
	}

	w := wire{Kind: s.Kind, Text: s.Text, Start: s.Start, End: s.End}
	if s.IsHighlight() {
		w.ChunkID, w.Similarity = &s.ChunkID, &s.Similarity
	}
	return json.Marshal(w)
}

// IsHighlight reports whether the segment carries evidence.
func (s Segment) IsHighlight() bool {
	return s.Kind == KindHighlight
}

// Build splits text into an ordered, gap-free sequence of plain and highlight
// segments whose concatenation is exactly text. It does not modify chunks.
func Build(text string, chunks []scoring.EvidenceChunk) []Segment {
	segments, _ := sweep(text, chunks)
	return segments
}

// Suppressed returns, in (start, end) order, the ids of chunks that got no visible
// segment because they were empty, out of range or covered by earlier chunks.
func Suppressed(text string, chunks []scoring.EvidenceChunk) []int {
	_, hidden := sweep(text, chunks)
	return hidden
}

func sweep(text string, chunks []scoring.EvidenceChunk) ([]Segment, []int) {
	idx := newIndex(text)
	n := idx.length()

	if len(chunks) == 0 {
		return []Segment{{Kind: KindPlain, Text: text, Start: 0, End: n}}, nil
	}

	sorted := slices.Clone(chunks)
	slices.SortStableFunc(sorted, func(a, b scoring.EvidenceChunk) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	var (
		out    segmentList
		hidden []int
		cursor int
	)
	for _, c := range sorted {
		start, end := clamp(c.Start, n), clamp(c.End, n)
		if start >= end || end <= cursor {
			hidden = append(hidden, c.ID)
			continue
		}

		if start > cursor {
			out.plain(idx, cursor, start)
		}
		if start < cursor {
			start = cursor
		}

		out.highlight(idx, start, end, c)
		cursor = end
	}

	if cursor < n {
		out.plain(idx, cursor, n)
	}

	if len(out) == 0 {
		// only possible for empty text
		return []Segment{{Kind: KindPlain, Text: text, Start: 0, End: n}}, hidden
	}

	return out, hidden
}

type segmentList []Segment

// plain appends a plain span, merging it into a preceding plain span.
func (l *segmentList) plain(idx index, start, end int) {
	if start >= end {
		return
	}

	if last := len(*l) - 1; last >= 0 && (*l)[last].Kind == KindPlain && (*l)[last].End == start {
		(*l)[last].End = end
		(*l)[last].Text = idx.slice((*l)[last].Start, end)
		return
	}

	*l = append(*l, Segment{Kind: KindPlain, Text: idx.slice(start, end), Start: start, End: end})
}

func (l *segmentList) highlight(idx index, start, end int, c scoring.EvidenceChunk) {
	*l = append(*l, Segment{
		Kind:       KindHighlight,
		Text:       idx.slice(start, end),
		Start:      start,
		End:        end,
		ChunkID:    c.ID,
		Similarity: c.Similarity,
	})
}

// index maps character offsets to byte offsets so slicing never splits a
// UTF-8 sequence and invalid bytes are kept as they are.
type index struct {
	text    string
	offsets []int
}

func newIndex(text string) index {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	return index{text: text, offsets: offsets}
}

func (x index) length() int {
	return len(x.offsets) - 1
}

func (x index) slice(start, end int) string {
	return x.text[x.offsets[start]:x.offsets[end]]
}

func clamp(v, n int) int {
	return max(0, min(v, n))
}
