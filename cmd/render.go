package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/resume-scorer/internal/estimate"
	"github.com/spigell/resume-scorer/internal/evidence"
	"github.com/spigell/resume-scorer/internal/results"
	"github.com/spigell/resume-scorer/internal/scoring"

	"github.com/manifoldco/promptui"
)

var (
	highlightStyle = promptui.Styler(promptui.FGBlack, promptui.BGYellow)
	headerStyle    = promptui.Styler(promptui.FGBold)
	faintStyle     = promptui.Styler(promptui.FGFaint)
)

// renderer prints results for a terminal. plain drops ANSI styling and marks
// evidence as [[#id text]] instead.
type renderer struct {
	w     io.Writer
	plain bool
}

func (r renderer) style(style func(interface{}) string, s string) string {
	if r.plain {
		return s
	}
	return style(s)
}

func (r renderer) segments(segments []evidence.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		switch {
		case !s.IsHighlight():
			b.WriteString(s.Text)
		case r.plain:
			fmt.Fprintf(&b, "[[#%d %s]]", s.ChunkID, s.Text)
		default:
			b.WriteString(highlightStyle(s.Text))
		}
	}
	return b.String()
}

func (r renderer) summary(result *scoring.ScoreResult) {
	fmt.Fprintf(r.w, "%s %s / 10\n", r.style(headerStyle, "Average score:"), results.FormatScore(results.ChartDatum(result)))

	counts := results.CategoryCounts(result)
	for _, c := range scoring.AllCategories {
		fmt.Fprintf(r.w, "  %-17s %d\n", c, counts[c])
	}
}

func (r renderer) question(index int, q scoring.QuestionItem, resumeText string) {
	fmt.Fprintf(r.w, "\n%s %s\n", r.style(headerStyle, fmt.Sprintf("%d. [%s]", index+1, q.Category)), q.Question)
	fmt.Fprintf(r.w, "   answer: %s, score: %s, evidence: %d chars\n", q.Answer, results.FormatScore(q.Score), q.EvidenceChars)
	if q.Reasoning != "" {
		fmt.Fprintf(r.w, "   %s\n", r.style(faintStyle, q.Reasoning))
	}

	if len(q.RetrievedChunks) == 0 {
		return
	}

	for _, c := range q.RetrievedChunks {
		fmt.Fprintf(r.w, "   #%d [%d:%d] similarity %.2f\n", c.ID, c.Start, c.End, c.Similarity)
	}

	if resumeText == "" {
		return
	}

	if hidden := evidence.Suppressed(resumeText, q.RetrievedChunks); len(hidden) > 0 {
		fmt.Fprintf(r.w, "   %s\n", r.style(faintStyle, fmt.Sprintf("covered by earlier evidence: %v", hidden)))
	}
	fmt.Fprintf(r.w, "\n%s\n", r.segments(results.Segments(resumeText, q)))
}

func (r renderer) view(view results.View, resumeText string) {
	r.summary(view.Result())
	for i, q := range view.Questions() {
		r.question(i, q, resumeText)
	}
}

func (r renderer) estimate(state estimate.State) string {
	switch {
	case state.Message != "":
		return state.Message
	case state.Pending:
		return "estimating tokens..."
	case state.Estimate != nil:
		e := state.Estimate
		return fmt.Sprintf("~%d tokens (resume %d chars / %d tokens, job description %d chars / %d tokens)",
			e.Total(), e.ResumeTextLength, e.ResumeTokenEstimate, e.JDTextLength, e.JDTokenEstimate)
	default:
		return "no estimate"
	}
}

type questionReport struct {
	scoring.QuestionItem
	Segments         []evidence.Segment `json:"segments,omitempty"`
	SuppressedChunks []int              `json:"suppressed_chunks,omitempty"`
}

type analysisReport struct {
	AverageScore float64                  `json:"average_score"`
	ChartScore   float64                  `json:"chart_score"`
	MeanScore    float64                  `json:"mean_score"`
	Categories   map[scoring.Category]int `json:"categories"`
	Filter       string                   `json:"filter"`
	Questions    []questionReport         `json:"questions"`
}

func newAnalysisReport(view results.View, resumeText string) analysisReport {
	result := view.Result()

	report := analysisReport{
		AverageScore: result.AverageScore,
		ChartScore:   results.ChartDatum(result),
		MeanScore:    result.MeanScore(),
		Categories:   view.Counts(),
		Filter:       view.Filter(),
		Questions:    make([]questionReport, 0, view.Len()),
	}

	for _, q := range view.Questions() {
		qr := questionReport{QuestionItem: q}
		if resumeText != "" {
			qr.Segments = results.Segments(resumeText, q)
			qr.SuppressedChunks = evidence.Suppressed(resumeText, q.RetrievedChunks)
		}
		report.Questions = append(report.Questions, qr)
	}

	return report
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
