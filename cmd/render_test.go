package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/estimate"
	"github.com/spigell/resume-scorer/internal/evidence"
	"github.com/spigell/resume-scorer/internal/results"
	"github.com/spigell/resume-scorer/internal/scoring"
)

const resumeText = "Go developer. Kubernetes operator author."

func sampleResult() *scoring.ScoreResult {
	return &scoring.ScoreResult{
		Questions: []scoring.QuestionItem{
			{
				Category: scoring.CategoryTechnicalSkills,
				Question: "Knows Go?",
				Answer:   "yes",
				Score:    9,
				RetrievedChunks: []scoring.EvidenceChunk{
					{ID: 1, Start: 0, End: 12, Similarity: 0.9},
					{ID: 2, Start: 3, End: 9, Similarity: 0.5},
				},
			},
			{
				Category: scoring.CategoryExperience,
				Question: "Operators?",
				Answer:   "partial",
				Score:    5.5,
				RetrievedChunks: []scoring.EvidenceChunk{
					{ID: 7, Start: 14, End: 33, Similarity: 0.7},
				},
			},
		},
		AverageScore: 7.25,
	}
}

func TestRenderSegmentsPlain(t *testing.T) {
	r := renderer{plain: true}

	got := r.segments(evidence.Build(resumeText, sampleResult().Questions[1].RetrievedChunks))
	assert.Equal(t, "Go developer. [[#7 Kubernetes operator]] author.", got)
}

func TestRenderQuestionPlain(t *testing.T) {
	var b bytes.Buffer
	r := renderer{w: &b, plain: true}

	r.question(0, sampleResult().Questions[0], resumeText)

	out := b.String()
	assert.Contains(t, out, "1. [technical_skills] Knows Go?")
	assert.Contains(t, out, "answer: yes, score: 9.0")
	assert.Contains(t, out, "covered by earlier evidence: [2]")
	assert.Contains(t, out, "[[#1 Go developer]]. Kubernetes operator author.")
}

func TestRenderSummaryPlain(t *testing.T) {
	var b bytes.Buffer
	renderer{w: &b, plain: true}.summary(sampleResult())

	out := b.String()
	assert.Contains(t, out, "Average score: 7.3 / 10")
	assert.Contains(t, out, "education         0")
	assert.Contains(t, out, "experience        1")
}

func TestRenderEstimate(t *testing.T) {
	r := renderer{}

	assert.Equal(t, "no estimate", r.estimate(estimate.State{}))
	assert.Equal(t, "estimating tokens...", r.estimate(estimate.State{Pending: true}))
	assert.Equal(t, "token estimate unavailable: boom", r.estimate(estimate.State{Message: "token estimate unavailable: boom"}))
	assert.Equal(t,
		"~15 tokens (resume 40 chars / 10 tokens, job description 20 chars / 5 tokens)",
		r.estimate(estimate.State{Estimate: &scoring.TokenEstimate{ResumeTextLength: 40, ResumeTokenEstimate: 10, JDTextLength: 20, JDTokenEstimate: 5}}),
	)
}

func TestAnalysisReport(t *testing.T) {
	view := results.NewView(sampleResult()).WithFilter(string(scoring.CategoryTechnicalSkills))

	report := newAnalysisReport(view, resumeText)

	assert.InDelta(t, 7.25, report.AverageScore, 1e-9)
	assert.InDelta(t, 7.3, report.ChartScore, 1e-9)
	assert.InDelta(t, 7.25, report.MeanScore, 1e-9)
	assert.Equal(t, 0, report.Categories[scoring.CategoryEducation])
	assert.Equal(t, string(scoring.CategoryTechnicalSkills), report.Filter)
	require.Len(t, report.Questions, 1)
	assert.Equal(t, []int{2}, report.Questions[0].SuppressedChunks)
	require.Len(t, report.Questions[0].Segments, 2)

	var b bytes.Buffer
	require.NoError(t, writeJSON(&b, report))
	assert.Contains(t, b.String(), `"question": "Knows Go?"`)
	assert.Contains(t, b.String(), `"suppressed_chunks": [`)

	noText := newAnalysisReport(view, "")
	assert.Nil(t, noText.Questions[0].Segments)
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	resumePath := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(resumePath, []byte("Go developer"), 0o600))

	flags := sourceFlags{resumePath: resumePath, resumeText: "ignored", jdText: "Senior Go engineer"}
	resume, jd, err := flags.load(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, document.ModeFile, resume.Mode)
	assert.Equal(t, "cv.txt", resume.File.Name)
	assert.Equal(t, document.ModeText, jd.Mode)
	assert.Equal(t, document.RoleJobDescription, jd.Role)

	_, _, err = sourceFlags{resumeText: "Go developer"}.load(context.Background(), 0)
	require.ErrorContains(t, err, "job_description is required")

	_, _, err = sourceFlags{resumePath: filepath.Join(dir, "missing.pdf"), jdText: "x"}.load(context.Background(), 0)
	require.Error(t, err)
}

func TestLocalEstimate(t *testing.T) {
	got, err := localEstimate(
		document.FromText(document.RoleResume, "Résumé text"),
		document.FromText(document.RoleJobDescription, "12345678"),
	)
	require.NoError(t, err)

	assert.Equal(t, &scoring.TokenEstimate{ResumeTextLength: 11, ResumeTokenEstimate: 3, JDTextLength: 8, JDTokenEstimate: 2}, got)
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := withTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx, cancel = withTimeout(context.Background(), time.Minute)
	defer cancel()
	_, ok = ctx.Deadline()
	assert.True(t, ok)
}

func TestRedacted(t *testing.T) {
	config := &Config{APIKey: "secret", APIURL: "http://scorer"}

	assert.Equal(t, "***", redacted(config).APIKey)
	assert.Equal(t, "secret", config.APIKey)
}
