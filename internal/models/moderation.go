package models

import "time"

// TimestampLayout is the fixed-width UTC layout used for every persisted timestamp.
// Lexicographic order of formatted values matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ModerationResult is the normalized verdict returned by any classifier backend.
// The enrichment fields after Action are only filled in by the primary classifier.
type ModerationResult struct {
	Toxic          bool               `json:"toxic"`
	Score          float64            `json:"score"`
	Category       string             `json:"category"`
	Reason         string             `json:"reason"`
	Severity       string             `json:"severity,omitempty"`
	Action         string             `json:"action,omitempty"` // keep, delete, review
	IsExempted     *bool              `json:"isExempted,omitempty"`
	ProcessingPath string             `json:"processingPath,omitempty"`
	AllScores      map[string]float64 `json:"allScores,omitempty"`
	DetoxifyRaw    map[string]float64 `json:"detoxifyRaw,omitempty"`
	SimilarCases   []SimilarCase      `json:"similarCases,omitempty"`
	LLMAnalysis    map[string]any     `json:"llmAnalysis,omitempty"`
}

// SimilarCase is a reference example the primary classifier matched against
type SimilarCase struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
	Notes      string  `json:"notes"`
}

// Recommended dispositions reported by the primary classifier.
const (
	ActionKeep   = "keep"
	ActionDelete = "delete"
	ActionReview = "review"
)

// ClampScore forces a score into [0,1].
func ClampScore(score float64) float64 {
	if score < 0 || score != score {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// AnalyzeRequest for single text moderation
type AnalyzeRequest struct {
	Text     string `json:"text"`
	Platform string `json:"platform,omitempty"`
}

// BatchAnalyzeRequest for multiple texts
type BatchAnalyzeRequest struct {
	Items    []BatchItem `json:"items"`
	Platform string      `json:"platform,omitempty"`
}

// BatchItem is one text in a batch, identified by a caller-chosen id.
type BatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BatchItemResult pairs a batch item id with its verdict. The verdict fields are
// flattened next to the id when encoded.
type BatchItemResult struct {
	ID string `json:"id"`
	ModerationResult
}

// BatchAnalyzeResponse wraps batch verdicts in input order
type BatchAnalyzeResponse struct {
	Results []BatchItemResult `json:"results"`
}
