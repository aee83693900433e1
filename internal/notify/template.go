package notify

import (
	"strings"
	"text/template"
)

// Message templates for step requests. The first hop reads differently from
// later hops: the requester asks their own contact directly, while relayed
// hops carry the chain context along.
var (
	firstHopTmpl = template.Must(template.New("first").Parse(
		"{{.From}} would like an introduction to {{.Target}}." +
			"{{if .Note}} They added: {{.Note}}{{end}}" +
			" Are you willing to pass this along?"))

	relayHopTmpl = template.Must(template.New("relay").Parse(
		"{{.From}} is relaying an introduction request from {{.Requester}} " +
			"hoping to reach {{.Target}}." +
			"{{if .Note}} Original note: {{.Note}}{{end}}" +
			" Are you willing to pass this along?"))

	reminderTmpl = template.Must(template.New("reminder").Parse(
		"Reminder: the introduction request from {{.Requester}} toward " +
			"{{.Target}} is still waiting on you and expires soon."))
)

// StepMessage renders the ask sent to a step's recipient.
func StepMessage(stepNumber int, requester, from, target, note string) string {
	data := struct {
		Requester, From, Target, Note string
	}{requester, from, target, note}

	var b strings.Builder
	if stepNumber == 0 {
		_ = firstHopTmpl.Execute(&b, data)
	} else {
		_ = relayHopTmpl.Execute(&b, data)
	}
	return b.String()
}

// ReminderMessage renders the nudge for an unanswered step.
func ReminderMessage(requester, target string) string {
	var b strings.Builder
	_ = reminderTmpl.Execute(&b, struct{ Requester, Target string }{requester, target})
	return b.String()
}
