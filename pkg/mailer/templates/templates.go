package templates

import (
	"bytes"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

type message struct {
	subject string
	text    string
	html    string
}

// Small inline template set; subjects and text bodies are plain
// text/template, HTML bodies go through html/template escaping.
var messages = map[string]message{
	"welcome": {
		subject: "Welcome, {{.Name}}",
		text:    "Hi {{.Name}},\n\nYour account was created with the {{.Role}} role.\n",
		html:    "<p>Hi {{.Name}},</p><p>Your account was created with the <b>{{.Role}}</b> role.</p>",
	},
	"sweep_alert": {
		subject: "Deletion sweep finished with failures",
		text:    "Deletion sweep at {{.Time}}: {{.Deleted}} deleted, {{.Failed}} failed. Failed records stay scheduled and will be retried on the next run.\n",
		html:    "<p>Deletion sweep at {{.Time}}: <b>{{.Deleted}}</b> deleted, <b>{{.Failed}}</b> failed.</p><p>Failed records stay scheduled and will be retried on the next run.</p>",
	},
}

// Render renders a named template with data, returning subject, text
// and HTML bodies.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	m, ok := messages[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
	subject, err = renderText(name+"_subject", m.subject, data)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderText(name+"_text", m.text, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderHTML(name+"_html", m.html, data)
	if err != nil {
		return "", "", "", err
	}
	return subject, text, html, nil
}

func renderText(name, body string, data map[string]any) (string, error) {
	t, err := texttpl.New(name).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(name, body string, data map[string]any) (string, error) {
	t, err := htmpl.New(name).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
