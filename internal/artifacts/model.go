package artifacts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType names one kind of generated document.
type DocumentType string

const (
	TypeResume           DocumentType = "resume"
	TypeCoverLetter      DocumentType = "cover_letter"
	TypeEmailTemplates   DocumentType = "email_templates"
	TypeLinkedInMessages DocumentType = "linkedin_messages"
	TypeVideoScript      DocumentType = "video_script"
	TypeFollowupSchedule DocumentType = "followup_schedule"
	TypeSkillsAnalysis   DocumentType = "skills_analysis"
	TypeCompanyResearch  DocumentType = "company_research"
)

// GeneratedTypes are the document types produced by the language model, in
// the fixed order a batch walks them. Company research is produced separately.
var GeneratedTypes = []DocumentType{
	TypeResume,
	TypeCoverLetter,
	TypeEmailTemplates,
	TypeLinkedInMessages,
	TypeVideoScript,
	TypeFollowupSchedule,
	TypeSkillsAnalysis,
}

// ParseDocumentType validates a raw document type.
func ParseDocumentType(raw string) (DocumentType, bool) {
	dt := DocumentType(raw)
	if dt == TypeCompanyResearch {
		return dt, true
	}
	for _, t := range GeneratedTypes {
		if t == dt {
			return dt, true
		}
	}
	return "", false
}

// Artifact is the latest generated content for one (application, type) pair.
type Artifact struct {
	ApplicationID  int64           `json:"applicationId"`
	DocumentType   DocumentType    `json:"documentType"`
	Content        string          `json:"content"`
	StorageKey     string          `json:"storageKey,omitempty"`
	Provider       string          `json:"provider"`
	Model          string          `json:"model,omitempty"`
	TokensUsed     int             `json:"tokensUsed"`
	Cost           decimal.Decimal `json:"cost"`
	GenerationTime time.Duration   `json:"-"`
	GenerationMs   int64           `json:"generationTimeMs"`
	SizeBytes      int64           `json:"sizeBytes"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// StorageKey is the object store key for an artifact body.
func StorageKey(applicationID int64, documentType DocumentType) string {
	return fmt.Sprintf("applications/%d/%s.txt", applicationID, documentType)
}
