package evidence

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-scorer/internal/scoring"
)

func plain(text string, start int) Segment {
	return Segment{Kind: KindPlain, Text: text, Start: start, End: start + len([]rune(text))}
}

func highlight(id int, text string, start int) Segment {
	return Segment{Kind: KindHighlight, Text: text, Start: start, End: start + len([]rune(text)), ChunkID: id}
}

func chunk(id, start, end int) scoring.EvidenceChunk {
	return scoring.EvidenceChunk{ID: id, Start: start, End: end}
}

func TestBuildScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		chunks []scoring.EvidenceChunk
		expect []Segment
		hidden []int
	}{
		{
			name:   "simple",
			text:   "ABCDEFGHIJ",
			chunks: []scoring.EvidenceChunk{chunk(1, 2, 5), chunk(2, 7, 9)},
			expect: []Segment{plain("AB", 0), highlight(1, "CDE", 2), plain("F", 5), highlight(2, "HI", 7), plain("J", 9)},
		},
		{
			name:   "overlap is clamped",
			text:   "0123456789",
			chunks: []scoring.EvidenceChunk{chunk(1, 0, 5), chunk(2, 3, 8)},
			expect: []Segment{highlight(1, "01234", 0), highlight(2, "567", 5), plain("89", 8)},
		},
		{
			name:   "fully nested is suppressed",
			text:   "0123456789",
			chunks: []scoring.EvidenceChunk{chunk(1, 0, 10), chunk(2, 2, 4)},
			expect: []Segment{highlight(1, "0123456789", 0)},
			hidden: []int{2},
		},
		{
			name:   "no chunks",
			text:   "0123456789",
			chunks: nil,
			expect: []Segment{plain("0123456789", 0)},
		},
		{
			name:   "unsorted input",
			text:   "ABCDEFGHIJ",
			chunks: []scoring.EvidenceChunk{chunk(2, 7, 9), chunk(1, 2, 5)},
			expect: []Segment{plain("AB", 0), highlight(1, "CDE", 2), plain("F", 5), highlight(2, "HI", 7), plain("J", 9)},
		},
		{
			name:   "contiguous highlights stay distinct",
			text:   "ABCDEF",
			chunks: []scoring.EvidenceChunk{chunk(4, 3, 6), chunk(3, 0, 3)},
			expect: []Segment{highlight(3, "ABC", 0), highlight(4, "DEF", 3)},
		},
		{
			name:   "same start, shorter first",
			text:   "ABCDEF",
			chunks: []scoring.EvidenceChunk{chunk(1, 0, 4), chunk(2, 0, 2)},
			expect: []Segment{highlight(2, "AB", 0), highlight(1, "CD", 2), plain("EF", 4)},
		},
		{
			name:   "identical ranges keep input order",
			text:   "ABCDEF",
			chunks: []scoring.EvidenceChunk{chunk(9, 1, 3), chunk(8, 1, 3)},
			expect: []Segment{plain("A", 0), highlight(9, "BC", 1), plain("DEF", 3)},
			hidden: []int{8},
		},
		{
			name:   "offsets are clamped to the text",
			text:   "ABCDEF",
			chunks: []scoring.EvidenceChunk{chunk(1, -4, 2), chunk(2, 4, 40)},
			expect: []Segment{highlight(1, "AB", 0), plain("CD", 2), highlight(2, "EF", 4)},
		},
		{
			name:   "out of range starts sort before clamping",
			text:   "0123456789",
			chunks: []scoring.EvidenceChunk{chunk(2, -2, 2), chunk(1, -5, 3)},
			expect: []Segment{highlight(1, "012", 0), plain("3456789", 3)},
			hidden: []int{2},
		},
		{
			name:   "invalid ranges contribute nothing",
			text:   "ABCDEF",
			chunks: []scoring.EvidenceChunk{chunk(1, 4, 2), chunk(2, 3, 3), chunk(3, 10, 12)},
			expect: []Segment{plain("ABCDEF", 0)},
			hidden: []int{2, 1, 3},
		},
		{
			name:   "chunk covering the tail",
			text:   "ABCDEF",
			chunks: []scoring.EvidenceChunk{chunk(1, 2, 6)},
			expect: []Segment{plain("AB", 0), highlight(1, "CDEF", 2)},
		},
		{
			name:   "empty text with chunks",
			text:   "",
			chunks: []scoring.EvidenceChunk{chunk(1, 0, 3)},
			expect: []Segment{plain("", 0)},
			hidden: []int{1},
		},
		{
			name:   "multibyte characters",
			text:   "Résumé: Go, Kubernetes - 日本語",
			chunks: []scoring.EvidenceChunk{chunk(1, 0, 6), chunk(2, 25, 28)},
			expect: []Segment{highlight(1, "Résumé", 0), plain(": Go, Kubernetes - ", 6), highlight(2, "日本語", 25)},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expect, Build(tt.text, tt.chunks))
			assert.Equal(t, tt.hidden, Suppressed(tt.text, tt.chunks))
		})
	}
}

func TestBuildCarriesSimilarity(t *testing.T) {
	t.Parallel()

	segments := Build("ABCDEF", []scoring.EvidenceChunk{{ID: 5, Start: 1, End: 3, Similarity: 0.73, Text: "BC"}})
	require.Len(t, segments, 3)
	assert.True(t, segments[1].IsHighlight())
	assert.Equal(t, 5, segments[1].ChunkID)
	assert.InDelta(t, 0.73, segments[1].Similarity, 1e-12)
	assert.False(t, segments[0].IsHighlight())
	assert.Zero(t, segments[0].ChunkID)
}

func TestSegmentJSON(t *testing.T) {
	t.Parallel()

	segments := Build("ABCDEFGHIJ", []scoring.EvidenceChunk{
		{ID: 0, Start: 0, End: 3, Similarity: 0.8},
		{ID: 1, Start: 5, End: 7},
	})
	require.Len(t, segments, 4)

	data, err := json.Marshal(segments)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, map[string]any{"kind": "highlight", "text": "ABC", "start": 0.0, "end": 3.0, "chunk_id": 0.0, "similarity": 0.8}, got[0])
	assert.Equal(t, map[string]any{"kind": "plain", "text": "DE", "start": 3.0, "end": 5.0}, got[1])
	assert.Equal(t, map[string]any{"kind": "highlight", "text": "FG", "start": 5.0, "end": 7.0, "chunk_id": 1.0, "similarity": 0.0}, got[2])
	assert.NotContains(t, got[3], "chunk_id")
}

func TestBuildDoesNotModifyChunks(t *testing.T) {
	t.Parallel()

	chunks := []scoring.EvidenceChunk{chunk(2, 7, 40), chunk(1, -2, 5)}
	original := append([]scoring.EvidenceChunk(nil), chunks...)

	Build("ABCDEFGHIJ", chunks)
	assert.Equal(t, original, chunks)
}

func TestBuildKeepsInvalidUTF8(t *testing.T) {
	t.Parallel()

	text := "ab\xffcd"
	segments := Build(text, []scoring.EvidenceChunk{chunk(1, 2, 3)})

	assert.Equal(t, text, concat(segments))
	require.Len(t, segments, 3)
	assert.Equal(t, "\xff", segments[1].Text)
}

// TestBuildProperties checks coverage, ordering, single highlighting and
// determinism over random chunk sets.
func TestBuildProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcdefghij klmnopé日")

	for iteration := 0; iteration < 500; iteration++ {
		n := rng.Intn(40)
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(runes)

		chunks := make([]scoring.EvidenceChunk, rng.Intn(8))
		for i := range chunks {
			start := rng.Intn(n+10) - 5
			chunks[i] = chunk(i, start, start+rng.Intn(15)-2)
		}

		segments := Build(text, chunks)

		require.Equal(t, text, concat(segments), "coverage, iteration %d", iteration)

		covered := make([]int, n)
		prevStart := -1
		for i, s := range segments {
			assert.GreaterOrEqual(t, s.Start, prevStart, "order, iteration %d", iteration)
			prevStart = s.Start

			assert.Equal(t, string(runes[s.Start:s.End]), s.Text)

			if i > 0 {
				assert.Equal(t, segments[i-1].End, s.Start, "gap, iteration %d", iteration)
				assert.False(t, segments[i-1].Kind == KindPlain && s.Kind == KindPlain, "adjacent plains, iteration %d", iteration)
			}

			if s.IsHighlight() {
				assert.Less(t, s.Start, s.End)
				for c := s.Start; c < s.End; c++ {
					covered[c]++
				}
			}
		}
		for c, count := range covered {
			assert.LessOrEqual(t, count, 1, "character %d highlighted twice, iteration %d", c, iteration)
		}

		assert.Equal(t, segments, Build(text, chunks), "determinism, iteration %d", iteration)

		shuffled := append([]scoring.EvidenceChunk(nil), chunks...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if distinctRanges(chunks) {
			assert.Equal(t, segments, Build(text, shuffled), "submission order, iteration %d", iteration)
		}
	}
}

func concat(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// distinctRanges reports whether no two chunks share the same (start, end);
// only then is the output independent of submission order.
func distinctRanges(chunks []scoring.EvidenceChunk) bool {
	seen := make(map[[2]int]bool, len(chunks))
	for _, c := range chunks {
		key := [2]int{c.Start, c.End}
		if seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}
