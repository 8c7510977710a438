package llm

import (
	"strings"
	"testing"
)

func TestDocumentPromptFillsPlaceholders(t *testing.T) {
	profile := ProfileData{Name: "Ada Lovelace", Email: "ada@example.com", Skills: "Go, SQL"}
	job := JobData{Title: "Engineer", Company: "Acme"}

	for docType := range documentPrompts {
		docType := docType
		t.Run(docType, func(t *testing.T) {
			got := DocumentPrompt(docType, profile, job)
			if strings.Contains(got, "{{") {
				t.Fatalf("unfilled placeholder in %s prompt: %s", docType, got)
			}
			if !strings.Contains(got, "Engineer") {
				t.Fatalf("expected job title in %s prompt", docType)
			}
			if !strings.HasSuffix(got, formatInstructions[docType]) {
				t.Fatalf("expected format instructions suffix for %s", docType)
			}
		})
	}
}

func TestDocumentPromptAppliesDefaults(t *testing.T) {
	got := DocumentPrompt("resume", ProfileData{Name: "Ada"}, JobData{Title: "Engineer", Company: "Acme"})
	if !strings.Contains(got, "PHONE: Not provided") {
		t.Fatalf("expected phone default, got %s", got)
	}
	if !strings.Contains(got, "JOB REQUIREMENTS: Not specified") {
		t.Fatalf("expected requirements default, got %s", got)
	}
}

func TestDocumentPromptUnknownType(t *testing.T) {
	got := DocumentPrompt("haiku", ProfileData{}, JobData{Title: "Engineer", Company: "Acme"})
	if got != "Generate a professional haiku for Engineer at Acme." {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestOptimizePrompt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "please write a comprehensive   summary", want: "write a summary"},
		{in: "I want you to  create\n\na thorough plan", want: "create a plan"},
		{in: "Please keep capitalised words", want: "Please keep capitalised words"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := OptimizePrompt(tt.in); got != tt.want {
			t.Fatalf("OptimizePrompt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	if got := SystemPrompt("resume"); got != "Expert resume writer. Create ATS-friendly, professional resumes." {
		t.Fatalf("unexpected resume system prompt %q", got)
	}
	if got := SystemPrompt("unknown"); got != "Professional job application assistant." {
		t.Fatalf("unexpected fallback system prompt %q", got)
	}
}

func TestResearchPrompts(t *testing.T) {
	analysis := ResearchAnalysisPrompt("Acme", "", "- Acme raises funding")
	if !strings.Contains(analysis, "Acme raises funding") || !strings.Contains(analysis, "SMART QUESTIONS TO ASK") {
		t.Fatalf("unexpected analysis prompt: %s", analysis)
	}
	knowledge := ResearchKnowledgePrompt("Acme", "Engineer")
	if !strings.Contains(knowledge, "PREPARATION TIPS") || strings.Contains(knowledge, "{{") {
		t.Fatalf("unexpected knowledge prompt: %s", knowledge)
	}
}
