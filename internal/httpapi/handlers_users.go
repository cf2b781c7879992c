package httpapi

import (
	"net/http"
)

func (a *api) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	WriteSuccess(w, http.StatusOK, "", "", map[string]any{
		"user": toUserResponse(u),
	})
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
	ImageURL    string `json:"imageUrl"`
}

func (a *api) handleUsersMeUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, CodeBadJSON, "invalid json")
		return
	}

	updated, err := a.authSvc.UpdateProfile(r.Context(), u.ID, req.DisplayName, req.ImageURL)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "profile updated", "", map[string]any{
		"user": toUserResponse(updated),
	})
}

func (a *api) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.sessions.Stats(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "", "", map[string]any{
		"totalSessions": stats.TotalSessions,
		"activeUsers":   stats.ActiveUsers,
	})
}
