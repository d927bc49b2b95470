package sso

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
)

// Handlers handles SSO-related HTTP requests
type Handlers struct {
	db             *sql.DB
	storage        *Storage
	factory        *ProviderFactory
	provisioner    *UserProvisioner
	sessionManager *SessionManager
	baseURL        string
}

// NewHandlers creates a new SSO handlers instance
func NewHandlers(db *sql.DB, cat *catalog.Catalog, baseURL string) *Handlers {
	return &Handlers{
		db:             db,
		storage:        NewStorage(db),
		factory:        NewProviderFactory(baseURL),
		provisioner:    NewUserProvisioner(db, cat),
		sessionManager: NewSessionManager(db),
		baseURL:        baseURL,
	}
}

// RegisterAdminRoutes registers provider configuration management: mount
// this on an admin-gated subrouter, since anyone who can add or edit an
// OIDC provider can redirect logins through an issuer of their choosing.
func (h *Handlers) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/sso/providers", h.listProviders).Methods("GET")
	router.HandleFunc("/sso/providers", h.createProvider).Methods("POST")
	router.HandleFunc("/sso/providers/{name}", h.getProvider).Methods("GET")
	router.HandleFunc("/sso/providers/{name}", h.updateProvider).Methods("PUT")
	router.HandleFunc("/sso/providers/{name}", h.deleteProvider).Methods("DELETE")
	router.HandleFunc("/sso/providers/{name}/mappings", h.listUserMappings).Methods("GET")
	router.HandleFunc("/sso/providers/{name}/mappings/{externalUserID}", h.deleteUserMapping).Methods("DELETE")
}

// RegisterAuthRoutes registers the login/callback/logout flow: mount this
// on an anonymous subrouter, since a caller presents no session until the
// callback completes.
func (h *Handlers) RegisterAuthRoutes(router *mux.Router) {
	router.HandleFunc("/auth/sso/{provider}/login", h.initiateLogin).Methods("GET")
	router.HandleFunc("/auth/sso/{provider}/callback", h.handleCallback).Methods("GET", "POST")
	router.HandleFunc("/auth/sso/logout", h.logout).Methods("GET", "POST")
}

// CleanupExpiredSessions deletes expired federated-login sessions. Intended
// to be called on a schedule, the same way cmd/nitro-repo sweeps expired
// nitro sessions and abandoned stages.
func (h *Handlers) CleanupExpiredSessions() (int64, error) {
	return h.sessionManager.CleanupExpiredSessions()
}

// listProviders handles GET /sso/providers
func (h *Handlers) listProviders(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	providers, err := h.storage.ListProviders(enabledOnly)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Remove sensitive data
	for _, p := range providers {
		h.sanitizeProvider(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(providers)
}

// createProvider handles POST /sso/providers
func (h *Handlers) createProvider(w http.ResponseWriter, r *http.Request) {
	var config ProviderConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if config.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if config.ProviderType == "" {
		http.Error(w, "provider_type is required", http.StatusBadRequest)
		return
	}

	exists, err := h.storage.ProviderExists(config.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "provider with this name already exists", http.StatusConflict)
		return
	}

	provider, err := h.factory.CreateProvider(&config)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid provider config: %v", err), http.StatusBadRequest)
		return
	}

	if err := provider.ValidateConfig(); err != nil {
		http.Error(w, fmt.Sprintf("invalid provider config: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.storage.CreateProvider(&config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.sanitizeProvider(&config)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(config)
}

// getProvider handles GET /sso/providers/{name}
func (h *Handlers) getProvider(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	config, err := h.storage.GetProvider(name)
	if err == sql.ErrNoRows {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.sanitizeProvider(config)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

// updateProvider handles PUT /sso/providers/{name}
func (h *Handlers) updateProvider(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	existing, err := h.storage.GetProvider(name)
	if err == sql.ErrNoRows {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var config ProviderConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	config.ID = existing.ID
	config.Name = existing.Name

	provider, err := h.factory.CreateProvider(&config)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid provider config: %v", err), http.StatusBadRequest)
		return
	}

	if err := provider.ValidateConfig(); err != nil {
		http.Error(w, fmt.Sprintf("invalid provider config: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.storage.UpdateProvider(&config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.sanitizeProvider(&config)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

// deleteProvider handles DELETE /sso/providers/{name}
func (h *Handlers) deleteProvider(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	if err := h.storage.DeleteProvider(name); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listUserMappings handles GET /sso/providers/{name}/mappings, letting an
// admin see which external identities a provider has provisioned or
// linked to local accounts.
func (h *Handlers) listUserMappings(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	provider, err := h.storage.GetProvider(name)
	if err == sql.ErrNoRows {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mappings, err := h.provisioner.ListUserMappings(provider.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mappings)
}

// deleteUserMapping handles DELETE /sso/providers/{name}/mappings/{externalUserID},
// unlinking one external identity from its local account without touching
// the local user itself; a later login from that identity re-provisions
// under AutoProvision or fails closed otherwise.
func (h *Handlers) deleteUserMapping(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	externalUserID := vars["externalUserID"]

	provider, err := h.storage.GetProvider(name)
	if err == sql.ErrNoRows {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.provisioner.GetUserMapping(provider.ID, externalUserID); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "mapping not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.provisioner.DeleteUserMapping(provider.ID, externalUserID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// initiateLogin handles GET /auth/sso/{provider}/login
func (h *Handlers) initiateLogin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerName := vars["provider"]

	config, err := h.storage.GetProvider(providerName)
	if err == sql.ErrNoRows {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !config.Enabled {
		http.Error(w, "provider is disabled", http.StatusForbidden)
		return
	}

	provider, err := h.factory.CreateProvider(config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state, err := randomToken(32)
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "sso_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "sso_provider",
		Value:    providerName,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	returnURL := r.URL.Query().Get("return_url")
	if returnURL != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     "sso_return_url",
			Value:    returnURL,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600,
		})
	}

	if err := provider.InitiateLogin(w, r, state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleCallback handles GET/POST /auth/sso/{provider}/callback
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerName := vars["provider"]

	stateCookie, err := r.Cookie("sso_state")
	if err != nil {
		http.Error(w, "missing state cookie", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	config, err := h.storage.GetProvider(providerName)
	if err == sql.ErrNoRows {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	provider, err := h.factory.CreateProvider(config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ssoUser, err := provider.HandleCallback(w, r)
	if err != nil {
		http.Error(w, fmt.Sprintf("authentication failed: %v", err), http.StatusUnauthorized)
		return
	}

	user, err := h.provisioner.ProvisionUser(r.Context(), ssoUser, config)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to provision user: %v", err), http.StatusInternalServerError)
		return
	}

	sessionID, err := randomToken(16)
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	session := &SSOSession{
		ID:             sessionID,
		ProviderID:     config.ID,
		UserID:         user.ID,
		ExternalUserID: ssoUser.ExternalID,
		CreatedAt:      time.Now(),
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}

	if err := h.sessionManager.CreateSession(session); err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "sso_session",
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})

	http.SetCookie(w, &http.Cookie{Name: "sso_state", MaxAge: -1, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "sso_provider", MaxAge: -1, Path: "/"})

	returnURL := "/"
	if returnCookie, err := r.Cookie("sso_return_url"); err == nil {
		returnURL = returnCookie.Value
		http.SetCookie(w, &http.Cookie{Name: "sso_return_url", MaxAge: -1, Path: "/"})
	}

	http.Redirect(w, r, returnURL, http.StatusFound)
}

// logout handles GET/POST /auth/sso/logout
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie("sso_session")
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	session, err := h.sessionManager.GetSession(sessionCookie.Value)
	if err != nil {
		http.SetCookie(w, &http.Cookie{Name: "sso_session", MaxAge: -1, Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.sessionManager.DeleteSession(session.ID)
	http.SetCookie(w, &http.Cookie{Name: "sso_session", MaxAge: -1, Path: "/"})

	if config, err := h.storage.GetProviderByID(session.ProviderID); err == nil && config.Enabled {
		if provider, err := h.factory.CreateProvider(config); err == nil {
			provider.Logout(w, r, "")
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// sanitizeProvider removes sensitive information from provider config
func (h *Handlers) sanitizeProvider(config *ProviderConfig) {
	if config.OIDCConfig != nil {
		config.OIDCConfig.ClientSecret = ""
	}
}

// GetPrincipal extracts the authenticated identity.Principal from the SSO
// session cookie, using the same Principal type as password/token auth so
// the rest of the server treats SSO logins identically.
func (h *Handlers) GetPrincipal(r *http.Request) (*identity.Principal, error) {
	sessionCookie, err := r.Cookie("sso_session")
	if err != nil {
		return nil, fmt.Errorf("no SSO session")
	}

	session, err := h.sessionManager.GetSession(sessionCookie.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid session")
	}

	user, err := h.provisioner.cat.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &identity.Principal{User: user}, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
