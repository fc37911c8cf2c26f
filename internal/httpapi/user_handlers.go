package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"userdesk.org/internal/activity"
	"userdesk.org/internal/auth"
)

type createUserRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type updateUserRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Active   *bool   `json:"isActive,omitempty"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1_000_000)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), 10, 1, 100)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	filter := auth.ListFilter{
		Search: q.Get("search"),
		Role:   auth.Role(strings.TrimSpace(q.Get("role"))),
	}
	if raw := strings.TrimSpace(q.Get("isActive")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "isActive must be true or false")
			return
		}
		filter.Active = &active
	}

	users, total, err := a.svc.ListUsers(r.Context(), filter, auth.Page{Number: page, Size: limit})
	if err != nil {
		fail(w, r, err)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	respondPage(w, users, newPagination(page, limit, total))
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.svc.CreateUser(r.Context(), auth.CreateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     auth.Role(req.Role),
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	if actor, ok := auth.UserFromContext(r.Context()); ok {
		a.rec.Record(r.Context(), actor.ID, activity.ActionCreateUser,
			fmt.Sprintf("created user %s", user.Email), a.requestMeta(r))
	}
	w.Header().Set("Location", "/api/users/"+user.ID)
	respondData(w, http.StatusCreated, user)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	before, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}

	upd := auth.UserUpdate{
		FullName: req.FullName,
		Email:    req.Email,
		Active:   req.Active,
	}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		upd.Role = &role
	}

	user, err := a.svc.UpdateUser(r.Context(), id, upd)
	if err != nil {
		fail(w, r, err)
		return
	}

	if actor, ok := auth.UserFromContext(r.Context()); ok {
		action := activity.ActionUpdateUser
		details := fmt.Sprintf("updated user %s", user.Email)
		if req.Active != nil && before.Active != *req.Active {
			if *req.Active {
				action = activity.ActionActivateUser
				details = fmt.Sprintf("activated user %s", user.Email)
			} else {
				action = activity.ActionDeactivateUser
				details = fmt.Sprintf("deactivated user %s", user.Email)
			}
		}
		a.rec.Record(r.Context(), actor.ID, action, details, a.requestMeta(r))
	}
	respondData(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	if actor.ID == id {
		respondError(w, r, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	target, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := a.svc.DeleteUser(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}

	a.rec.Record(r.Context(), actor.ID, activity.ActionDeleteUser,
		fmt.Sprintf("deleted user %s", target.Email), a.requestMeta(r))
	respondMessage(w, "user deleted successfully")
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	stats, err := a.svc.UserStats(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("value must be an integer")
	}
	if val < min || val > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return val, nil
}
