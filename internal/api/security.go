package api

import (
	"net/http"
	"strings"

	"github.com/drygo/backend/internal/domain/auth"
)

// credentialFrom extracts the presented key. Storefront clients send it in
// the token header; Authorization: Bearer and api_key are accepted too.
func credentialFrom(r *http.Request) string {
	if t := r.Header.Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if key, ok := strings.CutPrefix(h, "Bearer "); ok {
			return key
		}
	}
	return r.Header.Get("api_key")
}

// authenticate resolves the request's credential, or auth.ErrUnauthorized.
func (h *Handler) authenticate(r *http.Request) (*auth.Credential, error) {
	key := credentialFrom(r)
	if key == "" {
		return nil, auth.ErrUnauthorized
	}
	return h.verifier.Verify(r.Context(), key)
}

// requireAuth authenticates or writes a 401. The bool reports success.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (*auth.Credential, bool) {
	cred, err := h.authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return cred, true
}

// requireAdmin authenticates and checks the admin scope.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.Credential, bool) {
	cred, ok := h.requireAuth(w, r)
	if !ok {
		return nil, false
	}
	if !cred.Admin() {
		respondError(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}
	return cred, true
}

// optionalIdentity returns the caller's user id when a valid credential is
// presented, empty otherwise. Invalid credentials are still rejected: a
// client that sends a key expects it to count.
func (h *Handler) optionalIdentity(r *http.Request) (string, error) {
	if credentialFrom(r) == "" {
		return "", nil
	}
	cred, err := h.authenticate(r)
	if err != nil {
		return "", err
	}
	return cred.UserID, nil
}
