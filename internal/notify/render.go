package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Email is fully rendered alert content. Addressing belongs to the
// deliverer, not here.
type Email struct {
	Subject  string
	TextBody string
	HTMLBody string
}

// TemplateRenderer renders alerts from the embedded templates.
type TemplateRenderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	ht, err := htmltemplate.ParseFS(templateFS, "templates/alert.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	tt, err := texttemplate.ParseFS(templateFS, "templates/alert.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &TemplateRenderer{html: ht, text: tt}, nil
}

func (r *TemplateRenderer) Render(p Payload) (Email, error) {
	subject := fmt.Sprintf("New Job Match: %s at %s", p.Title, p.Company)
	subject = strings.Join(strings.Fields(subject), " ")

	var htmlBuf bytes.Buffer
	if err := r.html.Execute(&htmlBuf, p); err != nil {
		return Email{}, fmt.Errorf("render html body: %w", err)
	}

	var textBuf bytes.Buffer
	if err := r.text.Execute(&textBuf, p); err != nil {
		return Email{}, fmt.Errorf("render text body: %w", err)
	}

	return Email{
		Subject:  subject,
		TextBody: textBuf.String(),
		HTMLBody: htmlBuf.String(),
	}, nil
}
