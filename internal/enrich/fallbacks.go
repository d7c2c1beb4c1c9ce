package enrich

// Field names used in logs, metrics and Result.Degraded.
const (
	FieldCategory         = "category"
	FieldSubCategory      = "subCategory"
	FieldSummary          = "summary"
	FieldSuggestedQueries = "suggestedQueries"
	FieldAnswer           = "answer"
	FieldChat             = "chat"
)

// Fallback values substituted when a call fails or returns nothing usable.
const (
	FallbackCategory    = CategoryOthers
	FallbackSubCategory = "Unknown"
	FallbackSummary     = "Summary unavailable."
	FallbackQuery       = "Query generation failed."
	FallbackAnswer      = "No relevant data found."
	FallbackChat        = "No response"
)

// SummaryPending marks records ingested without summarization.
const SummaryPending = "TBD"

// MaxSuggestedQueries caps the number of stored questions.
const MaxSuggestedQueries = 10

func fallbackQueries() []string {
	return []string{FallbackQuery}
}
