package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

// Stable machine-readable codes; clients branch on these, so they must not
// change between releases.
const (
	CodeOTPSent            = "OTP_SENT"
	CodeOTPVerified        = "OTP_VERIFIED"
	CodeOTPExpired         = "OTP_EXPIRED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeOTPServiceError    = "OTP_SERVICE_ERROR"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodeEmailSendFailed    = "EMAIL_SEND_FAILED"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRegistered         = "REGISTERED"
	CodeLoginSuccess       = "LOGIN_SUCCESS"
	CodeOAuthLogin         = "OAUTH_LOGIN"
	CodeLoggedOut          = "LOGGED_OUT"
	CodeTokenRefreshed     = "TOKEN_REFRESHED"
	CodePasswordReset      = "PASSWORD_RESET"
	CodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	CodeResetTokenExpired  = "RESET_TOKEN_EXPIRED"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadJSON            = "BAD_JSON"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeRequestTimeout     = "REQUEST_TIMEOUT"
	CodeServerError        = "SERVER_ERROR"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteSuccess(w http.ResponseWriter, status int, message, code string, data any) {
	WriteJSON(w, status, envelope{Success: true, Message: message, Code: code, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, envelope{Success: false, Message: message, Code: code})
}

// WriteDomainError maps a service error to status + stable code. Raw
// internal error text never reaches the client.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, CodeValidationError, "invalid request")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, CodeEmailTaken, "email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
	case errors.Is(err, domain.ErrNotVerified):
		WriteError(w, http.StatusForbidden, CodeEmailNotVerified, "email is not verified")
	case errors.Is(err, domain.ErrAlreadyVerified):
		WriteError(w, http.StatusBadRequest, CodeAlreadyVerified, "email is already verified")
	case errors.Is(err, domain.ErrOTPExpired):
		WriteError(w, http.StatusBadRequest, CodeOTPExpired, "verification code has expired")
	case errors.Is(err, domain.ErrOTPInvalid):
		WriteError(w, http.StatusBadRequest, CodeOTPInvalid, "verification code is invalid")
	case errors.Is(err, domain.ErrDeliveryFailed):
		WriteError(w, http.StatusInternalServerError, CodeEmailSendFailed, "failed to send email")
	case errors.Is(err, domain.ErrResetTokenExpired):
		WriteError(w, http.StatusBadRequest, CodeResetTokenExpired, "reset token has expired")
	case errors.Is(err, domain.ErrResetTokenInvalid):
		WriteError(w, http.StatusBadRequest, CodeResetTokenInvalid, "reset token is invalid")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, CodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
	case errors.Is(err, domain.ErrTimeout):
		WriteError(w, http.StatusGatewayTimeout, CodeRequestTimeout, "request timed out")
	default:
		WriteError(w, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
}
