package mailer

import "html/template"

// EmailTemplate pairs a subject line with an HTML body template. Bodies are
// executed with TemplateData.
type EmailTemplate struct {
	Subject string
	HTML    *template.Template
}

// Templates is the explicit template configuration for every email the engine
// sends. Callers may replace any entry; DefaultTemplates covers the rest.
type Templates struct {
	Verification  EmailTemplate
	PasswordReset EmailTemplate
}

// TemplateData is the payload available inside email bodies.
type TemplateData struct {
	Name      string
	Link      string
	ExpiresIn string
}

const verificationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
	<h2>Welcome{{if .Name}}, {{.Name}}{{end}}!</h2>
	<p>Please confirm your email address by clicking the link below:</p>
	<p><a href="{{.Link}}">Verify my email</a></p>
	<p>If the button does not work, copy this URL into your browser:</p>
	<p>{{.Link}}</p>
	<p>This link expires in {{.ExpiresIn}}. If you did not create this
	account, you can ignore this email.</p>
</body>
</html>`

const passwordResetHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
	<h2>Password reset requested</h2>
	<p>Hello{{if .Name}} {{.Name}}{{end}},</p>
	<p>We received a request to reset your password. Click the link below to
	choose a new one:</p>
	<p><a href="{{.Link}}">Reset my password</a></p>
	<p>This link expires in {{.ExpiresIn}}. If you did not request a reset,
	your password is unchanged and you can ignore this email.</p>
</body>
</html>`

// DefaultTemplates returns the built-in verification and reset emails.
func DefaultTemplates() Templates {
	return Templates{
		Verification: EmailTemplate{
			Subject: "Verify your email address",
			HTML:    template.Must(template.New("verification").Parse(verificationHTML)),
		},
		PasswordReset: EmailTemplate{
			Subject: "Reset your password",
			HTML:    template.Must(template.New("password_reset").Parse(passwordResetHTML)),
		},
	}
}

// merged fills any zero-valued entries from the defaults.
func (t Templates) merged() Templates {
	defaults := DefaultTemplates()

	if t.Verification.HTML == nil {
		t.Verification.HTML = defaults.Verification.HTML
	}
	if t.Verification.Subject == "" {
		t.Verification.Subject = defaults.Verification.Subject
	}

	if t.PasswordReset.HTML == nil {
		t.PasswordReset.HTML = defaults.PasswordReset.HTML
	}
	if t.PasswordReset.Subject == "" {
		t.PasswordReset.Subject = defaults.PasswordReset.Subject
	}

	return t
}
