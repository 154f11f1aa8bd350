package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.txt
var templateFS embed.FS

var templates = template.Must(template.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.txt"))

func render(templateName string, data any) (string, error) {
	tpl := templates.Lookup(templateName + ".txt")
	if tpl == nil {
		return "", fmt.Errorf("unknown template %q", templateName)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", templateName, err)
	}
	return buf.String(), nil
}
