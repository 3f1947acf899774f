package services

import (
	"bytes"
	"html/template"
	"log"

	"gopkg.in/gomail.v2"

	"github.com/example/moodsync-auth/internal/config"
	"github.com/example/moodsync-auth/internal/models"
)

var otpSubjects = map[string]string{
	models.PurposeRegistration:  "Verify Your Account",
	models.PurposeLogin:         "Your Login OTP",
	models.PurposeResetPassword: "Reset Your Password",
}

var otpTemplates = map[string]*template.Template{
	models.PurposeRegistration: template.Must(template.New("registration").Parse(`
<h2>Verify Your Account</h2>
<p>Your verification code is: <strong>{{.Code}}</strong></p>
<p>This code will expire in {{.ExpiresIn}} minutes.</p>
<p>If you didn't request this, please ignore this email.</p>`)),
	models.PurposeLogin: template.Must(template.New("login").Parse(`
<h2>Login Verification</h2>
<p>Your login code is: <strong>{{.Code}}</strong></p>
<p>This code will expire in {{.ExpiresIn}} minutes.</p>`)),
	models.PurposeResetPassword: template.Must(template.New("reset_password").Parse(`
<h2>Reset Your Password</h2>
<p>Your password reset code is: <strong>{{.Code}}</strong></p>
<p>This code will expire in {{.ExpiresIn}} minutes.</p>
<p>If you didn't request a password reset, please ignore this email.</p>`)),
}

// EmailService delivers OTP emails over SMTP. When SMTP is not configured
// it runs in simulation mode and only logs the code.
type EmailService struct {
	host      string
	port      int
	user      string
	password  string
	from      string
	expiresIn int
}

// NewEmailService constructs an EmailService from configuration.
func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		user:      cfg.SMTPUser,
		password:  cfg.SMTPPassword,
		from:      cfg.FromEmail,
		expiresIn: int(cfg.OTPExpiry.Minutes()),
	}
}

// SendOTP renders the per-purpose template and sends it to the address.
func (s *EmailService) SendOTP(toEmail, code, purpose string) error {
	if s.host == "" || s.user == "" || s.password == "" {
		log.Printf("[email simulation] OTP for %s: %s", toEmail, code)
		return nil
	}

	subject, ok := otpSubjects[purpose]
	if !ok {
		subject = "Your OTP Code"
	}

	body, err := s.renderBody(code, purpose)
	if err != nil {
		return err
	}

	from := s.from
	if from == "" {
		from = s.user
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(s.host, s.port, s.user, s.password)
	return dialer.DialAndSend(msg)
}

func (s *EmailService) renderBody(code, purpose string) (string, error) {
	tmpl, ok := otpTemplates[purpose]
	if !ok {
		tmpl = otpTemplates[models.PurposeRegistration]
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Code      string
		ExpiresIn int
	}{Code: code, ExpiresIn: s.expiresIn})
	return buf.String(), err
}
