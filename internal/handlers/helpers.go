package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pickline/backend/internal/middleware"
	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// decodeJSON reads exactly one JSON object into dst. On failure it writes
// the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		services.SendErrorResponse(w, fmt.Sprintf("Invalid %s", name), http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated subject set by middleware.Auth.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return uuid.Nil, false
	}
	return userID, true
}

// sameUser rejects a client-supplied user id that differs from the token
// subject. A nil claimed id always matches.
func sameUser(w http.ResponseWriter, subject uuid.UUID, claimed *uuid.UUID) bool {
	if claimed != nil && *claimed != subject {
		services.SendErrorResponse(w, "userId does not match the authenticated user", http.StatusForbidden, nil)
		return false
	}
	return true
}

// ownerOrAdmin resolves the {userID} path parameter and checks that the
// caller is that user or an admin.
func ownerOrAdmin(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	subject, ok := currentUser(w, r)
	if !ok {
		return uuid.Nil, false
	}
	target, ok := pathUUID(w, r, "userID")
	if !ok {
		return uuid.Nil, false
	}
	if target != subject && middleware.RoleFromContext(r.Context()) != models.RoleAdmin {
		services.SendErrorResponse(w, "Access to another user's records is not allowed", http.StatusForbidden, nil)
		return uuid.Nil, false
	}
	return target, true
}

// pageFromQuery reads ?limit and ?offset. Missing values fall back to the
// defaults applied by models.Page.Normalize.
func pageFromQuery(w http.ResponseWriter, r *http.Request) (models.Page, bool) {
	var page models.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			services.SendErrorResponse(w, fmt.Sprintf("Invalid %s", name), http.StatusBadRequest, nil)
			return models.Page{}, false
		}
		*dst = n
	}
	return page, true
}
