package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/gallery/internal/service"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Auth         *service.AuthService
	Assets       *service.AssetService
	Editions     *service.EditionService
	LoginLimiter *service.TokenBucket
	EditLimiter  *service.TokenBucket
	CookieSecure bool
	TokenTTL     time.Duration
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	authH := NewAuthHandler(d.Auth, d.CookieSecure, d.TokenTTL)
	assetH := NewAssetHandler(d.Assets, d.Editions)

	protected := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(d.Auth, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(d.Auth, RateLimit(d.EditLimiter, UserKey, h))
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("POST /auth/register", authH.HandleRegister)
	mux.Handle("POST /auth/login", RateLimit(d.LoginLimiter, ClientIP, http.HandlerFunc(authH.HandleLogin)))
	mux.HandleFunc("POST /auth/logout", authH.HandleLogout)
	mux.Handle("GET /auth/me", protected(authH.HandleMe))

	mux.Handle("POST /api/assets", limited(assetH.HandleUpload))
	mux.Handle("GET /api/assets/{id}", protected(assetH.HandleGet))
	mux.Handle("GET /api/assets/{id}/versions", protected(assetH.HandleListVersions))
	mux.Handle("GET /api/assets/{id}/versions/current", protected(assetH.HandleCurrentVersion))
	mux.Handle("GET /api/assets/{id}/versions/{version}/file", protected(assetH.HandleFile))
	mux.Handle("POST /api/assets/{id}/edits", limited(assetH.HandleApplyEdit))
	mux.Handle("POST /api/assets/{id}/versions/{version}/restore", limited(assetH.HandleRestore))
	mux.Handle("DELETE /api/assets/{id}/versions/{version}", limited(assetH.HandleDelete))
}
