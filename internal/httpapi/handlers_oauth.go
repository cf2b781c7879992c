package httpapi

import (
	"net/http"

	"github.com/mahanaatma1/GateKeeper/internal/auth"
	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type oauthLoginRequest struct {
	// Google and Apple flows post the provider's signed ID token; the
	// redirect-based providers post the authorization code instead.
	IDToken string `json:"idToken"`
	Code    string `json:"code"`
}

func (a *api) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	var req oauthLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	var (
		claims *auth.ProviderClaims
		err    error
	)
	switch provider {
	case "google":
		if req.IDToken == "" {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"idToken": "required"}))
			return
		}
		claims, err = auth.VerifyGoogleIDToken(r.Context(), req.IDToken, a.googleClientID)
	case "apple":
		if req.IDToken == "" {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"idToken": "required"}))
			return
		}
		claims, err = auth.VerifyAppleIDToken(r.Context(), req.IDToken, a.appleServiceID)
	case "github", "linkedin", "facebook":
		client, ok := a.oauthClients[provider]
		if !ok {
			WriteError(w, http.StatusNotFound, CodeUserNotFound, "unknown oauth provider")
			return
		}
		if req.Code == "" {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"code": "required"}))
			return
		}
		claims, err = client.Exchange(r.Context(), req.Code, a.redirectURL)
	default:
		WriteError(w, http.StatusNotFound, CodeUserNotFound, "unknown oauth provider")
		return
	}
	if err != nil {
		a.logger.Warn("oauth verification failed", "provider", provider, "err", err)
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	u, err := a.authSvc.FindOrLinkAccount(r.Context(), claims)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	token, refresh, err := a.issueTokenPair(u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	// SameSite=Lax so the cookie survives the provider's redirect back.
	a.establishSession(w, r, u.ID, auth.FlowOAuthRedirect)

	WriteSuccess(w, http.StatusOK, "logged in", CodeOAuthLogin, authData{
		RedirectTo:   "/dashboard",
		User:         toUserResponse(u),
		Token:        token,
		RefreshToken: refresh,
	})
}
