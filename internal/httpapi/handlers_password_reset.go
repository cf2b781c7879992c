package httpapi

import (
	"errors"
	"net/http"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword responds identically whether or not the email has an
// account, so the endpoint cannot be used to enumerate users.
func (a *api) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		WriteError(w, http.StatusBadRequest, CodeInvalidEmail, "must be a valid email address")
		return
	}

	res, err := a.otpSvc.Resend(r.Context(), req.Email, domain.OTPPurposePasswordReset)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		WriteDomainError(w, err)
		return
	}

	data := map[string]any{}
	if err == nil {
		data["otp"] = a.otpField(res.Code)
	}
	WriteSuccess(w, http.StatusOK, "if that email has an account, a reset code was sent", CodeOTPSent, data)
}

type verifyResetOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (a *api) handleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyResetOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		WriteError(w, http.StatusBadRequest, CodeInvalidEmail, "must be a valid email address")
		return
	}
	if !validOTP(req.OTP) {
		WriteError(w, http.StatusBadRequest, CodeOTPInvalid, "verification code is invalid")
		return
	}

	u, err := a.otpSvc.Verify(r.Context(), req.Email, req.OTP, domain.OTPPurposePasswordReset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	resetToken, err := a.resetSvc.CreateResetToken(r.Context(), u.ID, u.Email)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "code verified", CodeOTPVerified, map[string]any{
		"resetToken": resetToken,
	})
}

type resetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

func (a *api) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	if req.ResetToken == "" {
		WriteError(w, http.StatusBadRequest, CodeResetTokenInvalid, "reset token is required")
		return
	}
	if !validPassword(req.NewPassword) {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"newPassword": "must be 8-72 characters"}))
		return
	}

	if err := a.resetSvc.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "password updated, please log in again", CodePasswordReset, nil)
}
