package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type failureReportData struct {
	Title    string
	JobName  string
	RunDate  string
	Failures []FailureLine
}

// FailureLine is one failed item in a job failure report.
type FailureLine struct {
	ID    string
	Error string
}

func renderEmailTemplate(name string, data any) (string, error) {
	tpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
