package research

import (
	"fmt"
	"strings"
)

// FormatReport renders a research record as the plain-text report stored
// alongside generated documents.
func FormatReport(rec Record) string {
	company := rec.CompanyName
	if company == "" {
		company = "Unknown"
	}
	var b strings.Builder
	b.WriteString("COMPANY RESEARCH REPORT\n")
	fmt.Fprintf(&b, "Company: %s\n", company)
	fmt.Fprintf(&b, "Research Date: %s\n", rec.ResearchedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Source: %s\n", rec.Source)
	for _, section := range []struct{ title, body string }{
		{"COMPANY OVERVIEW", rec.Overview},
		{"RECENT DEVELOPMENTS", rec.RecentNews},
		{"INTERVIEW TALKING POINTS", rec.TalkingPoints},
		{"QUESTIONS TO ASK", rec.Questions},
		{"INDUSTRY CONTEXT", rec.IndustryContext},
	} {
		body := strings.TrimSpace(section.body)
		if body == "" {
			body = "Not available"
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", section.title, body)
	}
	return b.String()
}
