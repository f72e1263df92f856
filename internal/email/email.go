package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"go.uber.org/zap"
)

type Sender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	logger *zap.SugaredLogger
}

func NewSender(logger *zap.SugaredLogger, host, port, username, password, from string) *Sender {
	return &Sender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		logger:   logger,
	}
}

const otpTemplate = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .header { background-color: #6366f1; color: white; padding: 10px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; }
        .code { font-size: 32px; font-weight: bold; letter-spacing: 8px; text-align: center; color: #6366f1; font-family: monospace; }
        .footer { margin-top: 20px; font-size: 0.8em; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Welcome to Linkup!</h1>
        </div>
        <div class="content">
            <p>Thanks for signing up. Use this code to verify your email address:</p>
            <p class="code">{{.Code}}</p>
            <p>The code expires in {{.ExpiresIn}} minutes. Never share it with anyone.</p>
            <p>If you didn't create an account, you can safely ignore this email.</p>
        </div>
        <div class="footer">
            <p>&copy; 2026 Linkup</p>
        </div>
    </div>
</body>
</html>
`

// SendOtpEmail mails the plaintext code to the registrant. With no SMTP
// host configured the mail is logged instead, which keeps local development
// and tests working without a mail server.
func (s *Sender) SendOtpEmail(to, code string, expiresIn time.Duration) error {
	t, err := template.New("otp").Parse(otpTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	data := map[string]interface{}{
		"Code":      code,
		"ExpiresIn": int(expiresIn.Minutes()),
	}
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	headers := make(map[string]string)
	headers["From"] = s.From
	headers["To"] = to
	headers["Subject"] = "Verify your Linkup email"
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=\"UTF-8\""

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body.String()

	if s.Host == "" {
		s.logger.Infow("mock email", "to", to, "code", code)
		return nil
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(message))
}
