package scoring

import "math"

// Category is one of the fixed question classifications.
type Category string

const (
	CategoryEducation       Category = "education"
	CategoryExperience      Category = "experience"
	CategoryTechnicalSkills Category = "technical_skills"
	CategorySoftSkills      Category = "soft_skills"
)

// AllCategories lists the categories in display order.
var AllCategories = []Category{
	CategoryEducation,
	CategoryExperience,
	CategoryTechnicalSkills,
	CategorySoftSkills,
}

// Valid reports whether c is one of AllCategories.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// TokenEstimate is a snapshot of the estimate returned by /score/estimate.
type TokenEstimate struct {
	JDTextLength        int `json:"jd_text_length" mapstructure:"jd_text_length"`
	ResumeTextLength    int `json:"resume_text_length" mapstructure:"resume_text_length"`
	JDTokenEstimate     int `json:"jd_token_estimate" mapstructure:"jd_token_estimate"`
	ResumeTokenEstimate int `json:"resume_token_estimate" mapstructure:"resume_token_estimate"`
}

// Total is the combined token estimate of both documents.
func (e TokenEstimate) Total() int {
	return e.JDTokenEstimate + e.ResumeTokenEstimate
}

// EvidenceChunk is a character range of the resume retrieved as evidence.
// Start is inclusive, End exclusive, both counted in characters (code points).
// Text is expected but not guaranteed to equal that range of the resume.
type EvidenceChunk struct {
	ID         int     `json:"chunk_id" mapstructure:"chunk_id"`
	Start      int     `json:"start" mapstructure:"start"`
	End        int     `json:"end" mapstructure:"end"`
	Similarity float64 `json:"similarity" mapstructure:"similarity"`
	Text       string  `json:"text" mapstructure:"text"`
}

// QuestionItem is one evaluation question with its answer and evidence.
type QuestionItem struct {
	Category        Category        `json:"category" mapstructure:"category" validate:"required,oneof=education experience technical_skills soft_skills"`
	Question        string          `json:"question" mapstructure:"question" validate:"required"`
	Answer          string          `json:"answer" mapstructure:"answer"`
	Score           float64         `json:"score" mapstructure:"score" validate:"gte=0,lte=10"`
	Reasoning       string          `json:"reasoning" mapstructure:"reasoning"`
	EvidenceChars   int             `json:"evidence_chars" mapstructure:"evidence_chars" validate:"gte=0"`
	RetrievedChunks []EvidenceChunk `json:"retrieved_chunks" mapstructure:"retrieved_chunks"`
}

// ScoreResult is the scored question list. It is never modified after decoding.
type ScoreResult struct {
	Questions    []QuestionItem `json:"questions" mapstructure:"questions" validate:"required,dive"`
	AverageScore float64        `json:"average_score" mapstructure:"average_score" validate:"gte=0,lte=10"`
}

// MeanScore is the arithmetic mean of the question scores, 0 for no questions.
// The backend states AverageScore equals it; the client does not enforce that.
func (r *ScoreResult) MeanScore() float64 {
	if r == nil || len(r.Questions) == 0 {
		return 0
	}

	var sum float64
	for _, q := range r.Questions {
		sum += q.Score
	}
	return sum / float64(len(r.Questions))
}

// RoundedAverage is AverageScore rounded to one decimal place for display.
func (r *ScoreResult) RoundedAverage() float64 {
	if r == nil {
		return 0
	}
	return math.Round(r.AverageScore*10) / 10
}

// ScoreResponse is the envelope returned by /score.
type ScoreResponse struct {
	Success          bool         `json:"success" mapstructure:"success"`
	Result           *ScoreResult `json:"result" mapstructure:"-"`
	JDTextLength     int          `json:"jd_text_length" mapstructure:"jd_text_length"`
	ResumeTextLength int          `json:"resume_text_length" mapstructure:"resume_text_length"`
	Message          string       `json:"message" mapstructure:"message"`
	// ResumeText is the text the chunk offsets refer to, when the backend echoes it.
	ResumeText string `json:"resume_text,omitempty" mapstructure:"resume_text"`
}

// EstimateTokens is the backend's rough rule of thumb: about four characters per token.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
