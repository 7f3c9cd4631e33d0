package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/internal/identity/store"
	"github.com/expressmart/identity/pkg/httpx"
	"github.com/expressmart/identity/pkg/jwtx"
	"github.com/expressmart/identity/pkg/slogx"

	_ "github.com/expressmart/identity/api/identity" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	SessionService    *service.SessionService
	InvitationService *service.InvitationService
	ResetService      *service.ResetService
	BootstrapService  *service.BootstrapService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerInvitations()
	r.registerResets()
	r.registerUsers()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Expressmart Identity Service API
//	@version		0.1.0
//	@description	Identity and access service for the Expressmart dashboard: invitation-gated accounts, admin-approved password resets and JWT sessions.
//	@description
//	@description				Access tokens are signed with EdDSA and can be verified against the JWKS endpoint.
//
//	@contact.name				Expressmart Platform Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	tokenHandler := &TokenHandler{SessionService: r.SessionService}

	// POST /v1/token - strict limit keyed by IP + username against brute force
	r.Mux.Handle("POST /v1/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
}

func (r *Router) registerInvitations() {
	create := &InvitationCreateHandler{InvitationService: r.InvitationService}
	list := &InvitationListHandler{InvitationService: r.InvitationService}
	accept := &InvitationAcceptHandler{InvitationService: r.InvitationService}

	r.Mux.Handle("POST /v1/invitations",
		httpx.Chain(create,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/invitations",
		httpx.Chain(list,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Redemption is anonymous; strict IP limit against token guessing.
	r.Mux.Handle("POST /v1/invitations/accept",
		httpx.Chain(accept,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerResets() {
	request := &ResetRequestHandler{ResetService: r.ResetService}
	list := &ResetListHandler{ResetService: r.ResetService}
	approve := &ResetApproveHandler{ResetService: r.ResetService}
	confirm := &ResetConfirmHandler{ResetService: r.ResetService}

	r.Mux.Handle("POST /v1/password-resets",
		httpx.Chain(request,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/password-resets",
		httpx.Chain(list,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-resets/{id}/approve",
		httpx.Chain(approve,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-resets/confirm",
		httpx.Chain(confirm,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	me := &MeHandler{Store: r.store}

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit)))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit)))
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit)))
}

func (r *Router) registerBootstrap() {
	bootstrap := &BootstrapHandler{BootstrapService: r.BootstrapService}

	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrap, httpx.RateLimitByIP(httpx.StrictLimit)))
}

// actorFromContext recovers the authenticated caller injected by the authn
// middleware. The zero Actor means anonymous, which the policy table denies.
func actorFromContext(r *http.Request) domain.Actor {
	ctx := r.Context()
	userID, _ := ctx.Value(httpx.CtxKeyUserID).(string)
	role, _ := ctx.Value(httpx.CtxKeyRole).(string)
	return domain.Actor{UserID: userID, Role: domain.Role(role)}
}
