package email

import (
	"fmt"
	"strings"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

// VerificationMessage builds the OTP delivery mail for the given flow.
func VerificationMessage(toEmail, code string, purpose domain.OTPPurpose, ttlMinutes int) Message {
	subject := "Your GateKeeper verification code"
	intro := "Use this code to verify your email address:"
	if purpose == domain.OTPPurposePasswordReset {
		subject = "Your GateKeeper password reset code"
		intro = "Use this code to reset your password:"
	}

	body := strings.Join([]string{
		intro,
		"",
		code,
		"",
		fmt.Sprintf("The code expires in %d minutes.", ttlMinutes),
		"If you did not request it, you can ignore this email.",
	}, "\n")

	return Message{
		ToEmail:  toEmail,
		Subject:  subject,
		TextBody: body,
	}
}
