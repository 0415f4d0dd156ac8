package service

import (
	"bytes"
	"html/template"
)

var (
	newComplaintMail = template.Must(template.New("new").Parse(
		`<p>A new complaint has been submitted: <b>{{.Title}}</b>.</p>
<ul><li><b>Branch:</b> {{.Branch}}</li><li><b>Category:</b> {{.Category}}</li><li><b>Priority:</b> {{.Priority}}</li><li><b>Description:</b> {{.Description}}</li></ul>
<p><a href="{{.Link}}">View in Admin Dashboard</a></p>`))

	assignedMail = template.Must(template.New("assigned").Parse(
		`<p>A complaint (ID: <b>{{.ID}}</b>) has been forwarded to you.</p>
<p><b>{{.Title}}</b></p>
<p><a href="{{.Link}}">View in Resolver Dashboard</a></p>`))

	resolvedMail = template.Must(template.New("resolved").Parse(
		`<p>Your complaint <b>{{.Title}}</b> has been resolved.</p>
<p>{{.Resolution}}</p>
<p><a href="{{.Link}}">Leave feedback</a></p>`))
)

type mailView struct {
	ID          string
	Title       string
	Branch      string
	Category    string
	Priority    string
	Description string
	Resolution  string
	Link        string
}

func renderMail(t *template.Template, v mailView) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
