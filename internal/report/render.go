// Package report renders a fraud-risk assessment as a plain-text report for
// admin review screens and ticket attachments.
package report

import (
	"io"
	"strings"
	"text/template"

	"github.com/gaming/risk-service/internal/domain"
)

const reportTemplate = `FRAUD RISK REPORT: {{ .Username }}
Risk Score:     {{ .Score }}/100
Risk Level:     {{ .Level }}
Recommendation: {{ .Recommendation }}
Findings:       {{ .CriticalCount }} critical, {{ .WarningCount }} warning
{{- range .Groups }}

{{ .Title }}
{{- range .Findings }}
  [{{ .Code }}] {{ .Message }}
{{- end }}
{{- end }}
`

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

type group struct {
	Title    string
	Findings []domain.RiskFinding
}

type view struct {
	Username       string
	Score          int
	Level          domain.RiskLevel
	Recommendation domain.Recommendation
	CriticalCount  int
	WarningCount   int
	Groups         []group
}

var groupOrder = []struct {
	severity domain.Severity
	title    string
}{
	{domain.SeverityCritical, "CRITICAL ISSUES"},
	{domain.SeverityWarning, "WARNINGS"},
	{domain.SeverityClean, "CLEAN"},
}

// Render writes the report for a user's assessment to w.
// The score is printed raw against 100 and may exceed it.
func Render(w io.Writer, username string, a *domain.RiskAssessment) error {
	if strings.TrimSpace(username) == "" {
		username = "unknown user"
	}

	v := view{
		Username:       username,
		Score:          a.Score,
		Level:          a.Level,
		Recommendation: a.Recommendation,
		CriticalCount:  a.CriticalCount,
		WarningCount:   a.WarningCount,
	}

	for _, g := range groupOrder {
		var findings []domain.RiskFinding
		for _, f := range a.Findings {
			if f.Severity == g.severity {
				findings = append(findings, f)
			}
		}
		if len(findings) > 0 {
			v.Groups = append(v.Groups, group{Title: g.title, Findings: findings})
		}
	}

	return tmpl.Execute(w, v)
}
