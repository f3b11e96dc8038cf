package mail

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// LinkData carries the values rendered into the verification and reset
// messages.
type LinkData struct {
	AppName       string
	Name          string
	Link          string
	ExpiryMinutes int
	SupportEmail  string
	Year          int
}

const htmlBody = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>{{.Title}}</title>
</head>
<body style="margin:0; padding:0; background:#f2f4f6; font-family:-apple-system,'Segoe UI',Roboto,Arial; color:#1b1b1f;">
  <table width="100%" cellpadding="0" cellspacing="0" role="presentation">
    <tr>
      <td align="center" style="padding:32px 16px;">
        <table width="680" cellpadding="0" cellspacing="0" role="presentation" style="max-width:680px;">
          <tr>
            <td style="padding:24px 0;">
              <div style="font-size:18px; font-weight:700; color:#0f172a;">{{.Data.AppName}}</div>
            </td>
          </tr>
          <tr>
            <td style="background:#ffffff; border-radius:10px; padding:28px;">
              <h1 style="margin:0 0 12px 0; font-size:20px; color:#0f172a;">{{.Title}}</h1>
              <p style="margin:0 0 18px 0; color:#4b5563; line-height:1.5;">
                Hey {{.Data.Name}}, {{.Intro}}
              </p>
              <p style="text-align:center; margin:26px 0;">
                <a href="{{.Data.Link}}" role="button" style="display:inline-block; padding:14px 26px; font-weight:600; text-decoration:none; border-radius:8px; background:#0b74ff; color:#ffffff;">{{.Action}}</a>
              </p>
              <p style="margin:0 0 6px 0; color:#6b7280; font-size:13px;">Or paste this link into your browser:</p>
              <p style="word-break:break-all; font-size:13px; color:#6b7280; margin:4px 0 20px 0;">{{.Data.Link}}</p>
              <p style="margin:0 0 8px 0; color:#6b7280; font-size:13px;">This link will expire in <strong>{{.Data.ExpiryMinutes}} minutes</strong>.</p>
              <hr style="border:none; border-top:1px solid #eef2f7; margin:20px 0;">
              <p style="color:#6b7280; font-size:13px; margin:0;">
                If you didn't request this, you can safely ignore this email. If you think someone is trying to access your account, contact us at <a href="mailto:{{.Data.SupportEmail}}">{{.Data.SupportEmail}}</a>.
              </p>
            </td>
          </tr>
          <tr>
            <td style="padding:18px 0 0 0; text-align:center; color:#9ca3af; font-size:12px;">
              &copy; {{.Data.Year}} {{.Data.AppName}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

var bodyTemplate = template.Must(template.New("body").Parse(htmlBody))

type bodyContext struct {
	Title  string
	Intro  string
	Action string
	Data   LinkData
}

func render(ctx bodyContext) (string, error) {
	if ctx.Data.Year == 0 {
		ctx.Data.Year = time.Now().Year()
	}
	var b strings.Builder
	if err := bodyTemplate.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("rendering mail body: %w", err)
	}
	return b.String(), nil
}

// VerificationMessage builds the email-verification message for the given
// recipient and link data.
func VerificationMessage(to string, data LinkData) (Message, error) {
	html, err := render(bodyContext{
		Title:  "Verify your email",
		Intro:  fmt.Sprintf("welcome to %s! Click the button below to confirm this email address.", data.AppName),
		Action: "Verify email",
		Data:   data,
	})
	if err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf(
		"Hey %s,\n\nWelcome to %s! Open the link below to confirm this email address:\n\n%s\n\nThe link expires in %d minutes. If you didn't sign up, ignore this message.\n",
		data.Name, data.AppName, data.Link, data.ExpiryMinutes)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s: verify your email", data.AppName),
		Text:    text,
		HTML:    html,
	}, nil
}

// PasswordResetMessage builds the password-reset message for the given
// recipient and link data.
func PasswordResetMessage(to string, data LinkData) (Message, error) {
	html, err := render(bodyContext{
		Title:  "Reset your password",
		Intro:  fmt.Sprintf("we got a request to reset your %s password. Click the button below to pick a new password.", data.AppName),
		Action: "Reset password",
		Data:   data,
	})
	if err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf(
		"Hey %s,\n\nWe got a request to reset your %s password. Open the link below to pick a new one:\n\n%s\n\nThe link expires in %d minutes. If you didn't request a reset, ignore this message.\n",
		data.Name, data.AppName, data.Link, data.ExpiryMinutes)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s: reset your password", data.AppName),
		Text:    text,
		HTML:    html,
	}, nil
}
