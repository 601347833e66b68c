package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/lingo-api/internal/api/shared"
	"github.com/phrazzld/lingo-api/internal/service"
)

// getSubjectFromContext extracts the authenticated operator subject from the
// request context. The subject is placed there by the authentication
// middleware.
func getSubjectFromContext(r *http.Request) (string, bool) {
	subject, ok := r.Context().Value(shared.SubjectContextKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

// getPathLearnerID extracts the learner id path parameter. Learner ids are
// opaque chat identities, so the only validation is non-emptiness.
func getPathLearnerID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	return id, id != ""
}

// handleSubjectAndLearnerID extracts both the operator subject from the
// context and the learner id from the path, writing an error response if
// either is missing.
func handleSubjectAndLearnerID(
	w http.ResponseWriter,
	r *http.Request,
) (subject, learnerID string, ok bool) {
	subject, ok = getSubjectFromContext(r)
	if !ok {
		HandleAPIError(w, r, service.ErrUnauthorized, "Authentication required")
		return "", "", false
	}

	learnerID, ok = getPathLearnerID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Learner id is required")
		return "", "", false
	}

	return subject, learnerID, true
}
