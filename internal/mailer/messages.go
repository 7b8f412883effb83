package mailer

import "fmt"

func VerificationMessage(app, to, code string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Verify your %s account", app),
		Body:    fmt.Sprintf("Welcome to %s!\n\nYour verification code is %s.\n", app, code),
	}
}

func LoginCodeMessage(app, to, code string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %s login code", app),
		Body:    fmt.Sprintf("Your login code is %s. It expires in 10 minutes.\n\nIf you did not try to sign in, change your password.\n", code),
	}
}

func PasswordResetMessage(app, to, code string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Reset your %s password", app),
		Body:    fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.\n", code),
	}
}
