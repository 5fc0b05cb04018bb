// Package results derives the projections the presentation layer shows for a
// scored result: category counts, a filtered question list with a selection,
// the chart datum and evidence segments. A ScoreResult is never modified here.
package results

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spigell/resume-scorer/internal/evidence"
	"github.com/spigell/resume-scorer/internal/scoring"
)

// All is the filter value that keeps every question.
const All = "all"

// CategoryCounts counts questions per category. Every known category is
// present, zero included.
func CategoryCounts(result *scoring.ScoreResult) map[scoring.Category]int {
	counts := make(map[scoring.Category]int, len(scoring.AllCategories))
	for _, c := range scoring.AllCategories {
		counts[c] = 0
	}
	if result == nil {
		return counts
	}

	for _, q := range result.Questions {
		counts[q.Category]++
	}
	return counts
}

// Filter returns the questions of the given category in their original order.
// All returns every question. The returned slice is a copy.
func Filter(result *scoring.ScoreResult, filter string) []scoring.QuestionItem {
	if result == nil {
		return []scoring.QuestionItem{}
	}

	out := make([]scoring.QuestionItem, 0, len(result.Questions))
	for _, q := range result.Questions {
		if filter == All || string(q.Category) == filter {
			out = append(out, q)
		}
	}
	return out
}

// ParseCategory validates a filter value given by the user.
func ParseCategory(value string) (string, error) {
	if value == "" || value == All {
		return All, nil
	}
	if !scoring.Category(value).Valid() {
		return "", fmt.Errorf("unknown category %q, expected %s or one of %v", value, All, scoring.AllCategories)
	}
	return value, nil
}

// ChartDatum is the average score rounded to one decimal place.
func ChartDatum(result *scoring.ScoreResult) float64 {
	return result.RoundedAverage()
}

// FormatScore renders a score the way the chart shows it.
func FormatScore(score float64) string {
	return strconv.FormatFloat(math.Round(score*10)/10, 'f', 1, 64)
}

// Segments splits resumeText into plain and highlighted spans for the
// question's retrieved chunks.
func Segments(resumeText string, question scoring.QuestionItem) []evidence.Segment {
	return evidence.Build(resumeText, question.RetrievedChunks)
}

// View is an immutable projection of a result: the active filter, the
// filtered questions and the selected index into them. Methods return new
// values.
type View struct {
	result   *scoring.ScoreResult
	filter   string
	filtered []scoring.QuestionItem
	selected int
}

// NewView shows every question with the first one selected.
func NewView(result *scoring.ScoreResult) View {
	return View{
		result:   result,
		filter:   All,
		filtered: Filter(result, All),
	}
}

// WithFilter switches the filter. The selection is kept when it is still in
// range and reset to 0 otherwise.
func (v View) WithFilter(filter string) View {
	filtered := Filter(v.result, filter)

	selected := v.selected
	if selected >= len(filtered) {
		selected = 0
	}

	return View{
		result:   v.result,
		filter:   filter,
		filtered: filtered,
		selected: selected,
	}
}

// Select moves the selection, clamped to the filtered questions.
func (v View) Select(index int) View {
	v.selected = max(0, min(index, len(v.filtered)-1))
	return v
}

// Selected returns the selected question, false when the filter matches nothing.
func (v View) Selected() (scoring.QuestionItem, bool) {
	if len(v.filtered) == 0 {
		return scoring.QuestionItem{}, false
	}
	return v.filtered[v.selected], true
}

func (v View) SelectedIndex() int {
	return v.selected
}

func (v View) Filter() string {
	return v.filter
}

// Questions returns a copy of the filtered questions.
func (v View) Questions() []scoring.QuestionItem {
	return append([]scoring.QuestionItem(nil), v.filtered...)
}

func (v View) Len() int {
	return len(v.filtered)
}

func (v View) Counts() map[scoring.Category]int {
	return CategoryCounts(v.result)
}

func (v View) Result() *scoring.ScoreResult {
	return v.result
}

// ReportByCategory groups question summaries under each category.
func ReportByCategory(result *scoring.ScoreResult) map[scoring.Category][]map[string]string {
	report := make(map[scoring.Category][]map[string]string, len(scoring.AllCategories))
	for _, q := range Filter(result, All) {
		report[q.Category] = append(report[q.Category], map[string]string{
			"question":       q.Question,
			"answer":         q.Answer,
			"score":          FormatScore(q.Score),
			"evidence_chars": strconv.Itoa(q.EvidenceChars),
			"chunks":         strconv.Itoa(len(q.RetrievedChunks)),
		})
	}
	return report
}

// DumpToTmpFile writes the result as indented JSON to a new temporary file
// and returns its name.
func DumpToTmpFile(result *scoring.ScoreResult) (string, error) {
	file, err := os.CreateTemp("", "resume_score_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return "", err
	}
	return file.Name(), nil
}
