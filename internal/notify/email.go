package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
)

// EmailDispatcher sends notifications through a plain SMTP relay.
type EmailDispatcher struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewEmailDispatcherFromEnv builds a dispatcher from SMTP_* env vars, or
// returns false when SMTP is not configured.
func NewEmailDispatcherFromEnv() (*EmailDispatcher, bool) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, false
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "no-reply@veramo.local"
	}
	return &EmailDispatcher{
		host: host,
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASSWORD"),
		from: from,
	}, true
}

func (d *EmailDispatcher) send(to, subject, body string) error {
	if to == "" {
		return nil
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		d.from, to, subject, body))

	var auth smtp.Auth
	if d.user != "" {
		auth = smtp.PlainAuth("", d.user, d.pass, d.host)
	}
	return smtp.SendMail(d.host+":"+d.port, auth, d.from, []string{to}, msg)
}

func (d *EmailDispatcher) SendOTP(_ context.Context, to Contact, code string) error {
	body := fmt.Sprintf("Olá %s,\n\nSeu código de verificação para assinatura é: %s\n\nO código expira em 10 minutos.", to.Name, code)
	return d.send(to.Email, "Código de verificação de assinatura eletrônica", body)
}

func (d *EmailDispatcher) SendEmployeeLink(_ context.Context, to Contact, url string) error {
	body := fmt.Sprintf("Olá %s,\n\nAcesse o link abaixo para assinar o termo de homologação:\n\n%s", to.Name, url)
	return d.send(to.Email, "Assinatura do termo de homologação", body)
}

func (d *EmailDispatcher) SendStatusUpdate(_ context.Context, to Contact, subject, message string) error {
	return d.send(to.Email, subject, fmt.Sprintf("Olá %s,\n\n%s", to.Name, message))
}
