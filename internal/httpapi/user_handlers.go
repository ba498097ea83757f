package httpapi

import (
	"net/http"
	"strings"

	"procurio.org/internal/procure"
)

type userUpdateRequest struct {
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
}

func registerInput(req registerRequest) procure.UserInput {
	return procure.UserInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	}
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.svc.ListUsers(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"users": users,
			"count": len(users),
		})
	case http.MethodPost:
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.svc.CreateUser(r.Context(), registerInput(req))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.create", "user", user.ID, map[string]any{
			"email": user.Email,
			"role":  user.Role,
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "user created successfully",
			"user":    user,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "endpoint not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req userUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.svc.UpdateUser(r.Context(), id, procure.UserUpdate{
			Role:        req.Role,
			Permissions: req.Permissions,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.update", "user", user.ID, nil)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "user updated successfully",
			"user":    user,
		})
	case http.MethodDelete:
		if err := a.svc.DeleteUser(r.Context(), id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.delete", "user", id, nil)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "user deleted successfully",
		})
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
