package notification

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"claimflow/internal/model"
)

type messageData struct {
	DocumentID     string
	FileName       string
	PassengerName  string
	FlightNumber   string
	Status         model.DocumentStatus
	Recommendation string
	Reason         string
	Recipient      model.RecipientType
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + ".subject").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Parse(body)),
	}
}

var templates = map[model.NotificationType]messageTemplate{
	model.NotificationApproval: mustTemplate("approval",
		`Claim {{.DocumentID}} approved`,
		`{{if eq .Recipient "passenger"}}Dear {{or .PassengerName "passenger"}},

Your reimbursement claim for flight {{or .FlightNumber "(unknown)"}} has been approved.
{{else}}Claim {{.DocumentID}} ({{.FileName}}) was approved.
Flight: {{or .FlightNumber "(unknown)"}}
{{end}}{{with .Recommendation}}Recommendation: {{.}}
{{end}}{{with .Reason}}Notes: {{.}}
{{end}}`),
	model.NotificationRejection: mustTemplate("rejection",
		`Claim {{.DocumentID}} rejected`,
		`{{if eq .Recipient "passenger"}}Dear {{or .PassengerName "passenger"}},

Your reimbursement claim for flight {{or .FlightNumber "(unknown)"}} was not approved.
{{else}}Claim {{.DocumentID}} ({{.FileName}}) was rejected.
Flight: {{or .FlightNumber "(unknown)"}}
{{end}}{{with .Reason}}Reason: {{.}}
{{end}}`),
	model.NotificationManualReview: mustTemplate("manual_review",
		`Claim {{.DocumentID}} needs manual review`,
		`Claim {{.DocumentID}} ({{.FileName}}) is waiting for a decision.
Passenger: {{or .PassengerName "(unknown)"}}
Flight: {{or .FlightNumber "(unknown)"}}
{{with .Recommendation}}Recommendation: {{.}}
{{end}}{{with .Reason}}Analysis: {{.}}
{{end}}`),
	model.NotificationError: mustTemplate("error",
		`Claim {{.DocumentID}} failed processing`,
		`Processing of claim {{.DocumentID}} ({{.FileName}}) stopped with an error.
{{with .Reason}}Error: {{.}}
{{end}}`),
}

func render(typ model.NotificationType, data messageData) (subject, body string, err error) {
	tmpl, ok := templates[typ]
	if !ok {
		return "", "", eris.Errorf("no template for notification type %q", typ)
	}
	var s, b strings.Builder
	if err := tmpl.subject.Execute(&s, data); err != nil {
		return "", "", eris.Wrapf(err, "render %s subject", typ)
	}
	if err := tmpl.body.Execute(&b, data); err != nil {
		return "", "", eris.Wrapf(err, "render %s body", typ)
	}
	return s.String(), b.String(), nil
}
