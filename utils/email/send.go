package email

import (
	"errors"
	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp server not configured")

func sender() string {
	if len(globalConfig.From) != 0 {
		return globalConfig.From
	}
	return globalConfig.SMTP.UserName
}

func buildMessage(email string, subject string, htmlContent string) *gomail.Message {
	msg := gomail.NewMessage()

	msg.SetHeader("From", sender())
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/html", htmlContent)
	return msg
}

func SendHtml(email string, subject string, htmlContent string) error {
	if !Configured() {
		return ErrNotConfigured
	}

	msg := buildMessage(email, subject, htmlContent)

	dialer := gomail.NewDialer(
		globalConfig.SMTP.Host,
		globalConfig.SMTP.Port,
		globalConfig.SMTP.UserName,
		globalConfig.SMTP.Password)

	if err := dialer.DialAndSend(msg); err != nil {
		return err
	}

	return nil
}
