package httpapi

import (
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.login", "user", session.User.Subject, map[string]any{
		"email": session.User.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"tokens":  session.Tokens,
		"user": map[string]any{
			"user_id": session.User.Subject,
			"email":   session.User.Email,
			"role":    session.User.Role,
		},
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := a.svc.Logout(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.logout", "session", RequestIDFromContext(r.Context()), nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logout successful",
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.svc.RegisterUser(r.Context(), registerInput(req))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.register", "user", user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user":    user,
	})
}
