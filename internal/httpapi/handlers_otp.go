package httpapi

import (
	"errors"
	"net/http"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type sendOTPRequest struct {
	Email    string `json:"email"`
	IsResend bool   `json:"isResend"`
}

func (a *api) handleSendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		WriteError(w, http.StatusBadRequest, CodeInvalidEmail, "must be a valid email address")
		return
	}

	res, err := a.otpSvc.Issue(r.Context(), req.Email, domain.OTPPurposeRegistration, req.IsResend)
	if err != nil {
		if errors.Is(err, domain.ErrDeliveryFailed) {
			a.logger.Error("otp delivery failed", "email", req.Email, "err", err)
		}
		writeOTPError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "verification code sent", CodeOTPSent, map[string]any{
		"otp":       a.otpField(res.Code),
		"isNewUser": res.IsNewUser,
	})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (a *api) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
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

	u, err := a.otpSvc.Verify(r.Context(), req.Email, req.OTP, domain.OTPPurposeRegistration)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	token, refresh, err := a.issueTokenPair(u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.establishSession(w, r, u.ID, auth.FlowDefault)

	WriteSuccess(w, http.StatusOK, "email verified", CodeOTPVerified, authData{
		RedirectTo:   "/dashboard",
		User:         toUserResponse(u),
		Token:        token,
		RefreshToken: refresh,
	})
}

func (a *api) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	req.Email = normalizeEmail(req.Email)
	if !validEmail(req.Email) {
		WriteError(w, http.StatusBadRequest, CodeInvalidEmail, "must be a valid email address")
		return
	}

	res, err := a.otpSvc.Resend(r.Context(), req.Email, domain.OTPPurposeRegistration)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteError(w, http.StatusNotFound, CodeUserNotFound, "no account for that email")
			return
		}
		writeOTPError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "verification code sent", CodeOTPSent, map[string]any{
		"otp": a.otpField(res.Code),
	})
}

// writeOTPError maps recognized domain errors to their own codes and
// everything else to CodeOTPServiceError.
func writeOTPError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyVerified),
		errors.Is(err, domain.ErrDeliveryFailed),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTimeout):
		WriteDomainError(w, err)
	default:
		WriteError(w, http.StatusInternalServerError, CodeOTPServiceError, "could not process verification code")
	}
}
