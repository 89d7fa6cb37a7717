package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"net/mail"
	texttemplate "text/template"
)

// WelcomeData feeds the welcome template.
type WelcomeData struct {
	Email        string
	Role         string
	TempPassword string
	LoginURL     string
}

// ResetData feeds the password reset template.
type ResetData struct {
	Email        string
	ResetURL     string
	ValidMinutes int
}

const welcomeText = `Welcome to MerryKids.

An account has been created for you.

Email: {{.Email}}
Role: {{.Role}}
Temporary password: {{.TempPassword}}

Sign in at {{.LoginURL}}. You will be asked to choose a new password on first login.
`

const welcomeHTML = `<p>Welcome to MerryKids.</p>
<p>An account has been created for you.</p>
<ul><li>Email: {{.Email}}</li><li>Role: {{.Role}}</li><li>Temporary password: <code>{{.TempPassword}}</code></li></ul>
<p><a href="{{.LoginURL}}">Sign in</a>. You will be asked to choose a new password on first login.</p>
`

const resetText = `We received a request to reset the password for {{.Email}}.

Use the link below within {{.ValidMinutes}} minutes:
{{.ResetURL}}

If you did not request this, you can ignore this email.
`

const resetHTML = `<p>We received a request to reset the password for {{.Email}}.</p>
<p><a href="{{.ResetURL}}">Reset your password</a> within {{.ValidMinutes}} minutes.</p>
<p>If you did not request this, you can ignore this email.</p>
`

var (
	welcomeTextTmpl = texttemplate.Must(texttemplate.New("welcome.txt").Parse(welcomeText))
	welcomeHTMLTmpl = template.Must(template.New("welcome.html").Parse(welcomeHTML))
	resetTextTmpl   = texttemplate.Must(texttemplate.New("reset.txt").Parse(resetText))
	resetHTMLTmpl   = template.Must(template.New("reset.html").Parse(resetHTML))
)

func render(text *texttemplate.Template, html *template.Template, data interface{}) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", html.Name(), err)
	}
	return tb.String(), hb.String(), nil
}

// Welcome renders the new-account email.
func Welcome(data WelcomeData) (Message, error) {
	text, html, err := render(welcomeTextTmpl, welcomeHTMLTmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: mail.Address{Address: data.Email}, Subject: "Your MerryKids account", Text: text, HTML: html}, nil
}

// PasswordReset renders the reset-link email.
func PasswordReset(data ResetData) (Message, error) {
	text, html, err := render(resetTextTmpl, resetHTMLTmpl, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: mail.Address{Address: data.Email}, Subject: "Reset your MerryKids password", Text: text, HTML: html}, nil
}
