package llm

import (
	_ "embed"
	"fmt"
	"strings"
)

var (
	//go:embed prompts/resume.txt
	promptResume string
	//go:embed prompts/cover_letter.txt
	promptCoverLetter string
	//go:embed prompts/email_templates.txt
	promptEmailTemplates string
	//go:embed prompts/linkedin_messages.txt
	promptLinkedInMessages string
	//go:embed prompts/video_script.txt
	promptVideoScript string
	//go:embed prompts/followup_schedule.txt
	promptFollowupSchedule string
	//go:embed prompts/skills_analysis.txt
	promptSkillsAnalysis string
	//go:embed prompts/research_analysis.txt
	promptResearchAnalysis string
	//go:embed prompts/research_knowledge.txt
	promptResearchKnowledge string
)

// DefaultSystemPrompt is used when a caller does not supply one.
const DefaultSystemPrompt = "You are an expert job application assistant. Generate a professional %s."

var documentPrompts = map[string]string{
	"resume":            promptResume,
	"cover_letter":      promptCoverLetter,
	"email_templates":   promptEmailTemplates,
	"linkedin_messages": promptLinkedInMessages,
	"video_script":      promptVideoScript,
	"followup_schedule": promptFollowupSchedule,
	"skills_analysis":   promptSkillsAnalysis,
}

var systemPrompts = map[string]string{
	"resume":            "Expert resume writer. Create ATS-friendly, professional resumes.",
	"cover_letter":      "Professional cover letter specialist. Write compelling, concise letters.",
	"email_templates":   "Email communication expert. Create professional, effective templates.",
	"linkedin_messages": "LinkedIn networking specialist. Write engaging, professional messages.",
	"video_script":      "Video content creator. Write natural, confident speaking scripts.",
	"company_research":  "Business research analyst. Provide actionable company insights.",
	"followup_schedule": "Job application strategist. Create effective follow-up timelines.",
	"skills_analysis":   "Career development advisor. Analyze skills and provide guidance.",
}

var formatInstructions = map[string]string{
	"resume":            "\nFORMAT: Use bullet points, action verbs, quantified results. Professional formatting.",
	"cover_letter":      "\nFORMAT: 3 paragraphs, professional business letter format. Include date and addresses.",
	"email_templates":   "\nFORMAT: Subject line + email body. Professional email structure.",
	"linkedin_messages": "\nFORMAT: Brief, personalized messages. Include connection reason.",
	"video_script":      "\nFORMAT: Natural speech patterns. Include timing and emphasis cues.",
	"company_research":  "\nFORMAT: Structured sections. Bullet points for key information.",
	"followup_schedule": "\nFORMAT: Timeline with dates, actions, and email subjects.",
	"skills_analysis":   "\nFORMAT: Structured analysis with recommendations and action items.",
}

// Filler phrases removed before a prompt is sent. Matching is case-sensitive.
var optimizerReplacer = strings.NewReplacer(
	"please ", "",
	"kindly ", "",
	"you are ", "",
	"I want you to ", "",
	"I need you to ", "",
	"can you ", "",
	"would you ", "",
	"professional and ", "",
	"high-quality ", "",
	"detailed and ", "",
	"comprehensive ", "",
	"thorough ", "",
)

// ProfileData is the candidate information substituted into document prompts.
type ProfileData struct {
	Name       string
	Email      string
	Phone      string
	Location   string
	Experience string
	Skills     string
	Education  string
}

// JobData is the job posting information substituted into document prompts.
type JobData struct {
	Title        string
	Company      string
	Requirements string
	Description  string
}

// DocumentPrompt builds the optimized prompt for a document type, with its
// format instructions appended.
func DocumentPrompt(documentType string, profile ProfileData, job JobData) string {
	tmpl, ok := documentPrompts[documentType]
	if !ok {
		return fmt.Sprintf("Generate a professional %s for %s at %s.", documentType, job.Title, job.Company)
	}
	profile = profile.withDefaults()
	job = job.withDefaults()
	filled := strings.NewReplacer(
		"{{NAME}}", profile.Name,
		"{{EMAIL}}", profile.Email,
		"{{PHONE}}", profile.Phone,
		"{{LOCATION}}", profile.Location,
		"{{EXPERIENCE}}", profile.Experience,
		"{{SKILLS}}", profile.Skills,
		"{{EDUCATION}}", profile.Education,
		"{{TITLE}}", job.Title,
		"{{COMPANY}}", job.Company,
		"{{REQUIREMENTS}}", job.Requirements,
		"{{DESCRIPTION}}", job.Description,
	).Replace(tmpl)
	return OptimizePrompt(filled) + formatInstructions[documentType]
}

// OptimizePrompt strips filler phrases and collapses whitespace.
func OptimizePrompt(prompt string) string {
	return strings.Join(strings.Fields(optimizerReplacer.Replace(prompt)), " ")
}

// SystemPrompt returns the system message for a document type.
func SystemPrompt(documentType string) string {
	if p, ok := systemPrompts[documentType]; ok {
		return p
	}
	return "Professional job application assistant."
}

// ResearchAnalysisPrompt asks for a structured analysis of live search snippets.
func ResearchAnalysisPrompt(company, jobTitle, results string) string {
	return strings.NewReplacer(
		"{{COMPANY}}", company,
		"{{TITLE}}", orDefault(jobTitle, "candidate"),
		"{{RESULTS}}", results,
	).Replace(promptResearchAnalysis)
}

// ResearchKnowledgePrompt asks for research from model knowledge only.
func ResearchKnowledgePrompt(company, jobTitle string) string {
	return strings.NewReplacer(
		"{{COMPANY}}", company,
		"{{TITLE}}", orDefault(jobTitle, "candidate"),
	).Replace(promptResearchKnowledge)
}

func (p ProfileData) withDefaults() ProfileData {
	p.Name = orDefault(p.Name, "Candidate")
	p.Email = orDefault(p.Email, "Not provided")
	p.Phone = orDefault(p.Phone, "Not provided")
	p.Location = orDefault(p.Location, "Not provided")
	p.Experience = orDefault(p.Experience, "Professional background")
	p.Skills = orDefault(p.Skills, "Relevant skills")
	p.Education = orDefault(p.Education, "Educational background")
	return p
}

func (j JobData) withDefaults() JobData {
	j.Requirements = orDefault(j.Requirements, "Not specified")
	j.Description = orDefault(j.Description, "Not specified")
	return j
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
