package research

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source names the tier that produced a research record.
type Source string

const (
	SourceLiveSearch  Source = "live_search"
	SourceAIKnowledge Source = "ai_knowledge_base"
	SourceGeneric     Source = "generic"
)

const notAvailable = "Information not available"

// Record is the company research stored for one application.
type Record struct {
	ApplicationID   int64           `json:"applicationId"`
	CompanyName     string          `json:"companyName"`
	Overview        string          `json:"overview"`
	RecentNews      string          `json:"recentNews"`
	TalkingPoints   string          `json:"talkingPoints"`
	Questions       string          `json:"questions"`
	IndustryContext string          `json:"industryContext"`
	Source          Source          `json:"source"`
	Provider        string          `json:"provider,omitempty"`
	TokensUsed      int             `json:"tokensUsed"`
	Cost            decimal.Decimal `json:"cost"`
	ResearchedAt    time.Time       `json:"researchedAt"`
}

// Succeeded reports whether a live or AI tier produced the record.
func (r Record) Succeeded() bool {
	return r.Source == SourceLiveSearch || r.Source == SourceAIKnowledge
}

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
