package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"messaging-service/internal/handlers"
	"messaging-service/internal/logging"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Users    *handlers.UserHandler
	Messages *handlers.MessageHandler
	Tokens   middleware.TokenVerifier
	DB       handlers.Pinger
	Log      *zap.Logger

	ServiceName        string
	CORSAllowedOrigins []string
	// ProtectUserScopedViews requires the caller to be the user named in the
	// path for the /messages/{view}/{user_id} routes.
	ProtectUserScopedViews bool
}

// Route binds one method and path to a handler under an access policy.
type Route struct {
	Method  string
	Path    string
	Policy  middleware.Policy
	Handler gin.HandlerFunc
}

// Routes is the full route table.
func Routes(d Deps) []Route {
	byUser := middleware.Public
	if d.ProtectUserScopedViews {
		byUser = middleware.SelfScope("user_id")
	}

	return []Route{
		{http.MethodGet, "/", middleware.Public, handlers.Root},
		{http.MethodGet, "/healthz", middleware.Public, handlers.Healthz(d.DB)},
		{http.MethodGet, "/metrics", middleware.Public, gin.WrapH(observability.MetricsHandler())},

		{http.MethodPost, "/auths/login", middleware.Public, d.Users.Login},
		{http.MethodPost, "/users", middleware.Public, d.Users.CreateUser},
		{http.MethodGet, "/users", middleware.Public, d.Users.ListUsers},
		{http.MethodGet, "/users/:id", middleware.Public, d.Users.GetUser},
		{http.MethodDelete, "/users/:id", middleware.SelfScope("id"), d.Users.DeleteUser},

		{http.MethodPost, "/messages", middleware.Authenticated, d.Messages.SendMessage},
		{http.MethodPut, "/message-recipients/:id/read", middleware.Authenticated, d.Messages.MarkRead},
		{http.MethodGet, "/messages/sent", middleware.Authenticated, d.Messages.SentForCurrentUser},
		{http.MethodGet, "/messages/sent/:user_id", byUser, d.Messages.SentForUser},
		{http.MethodGet, "/messages/inbox", middleware.Authenticated, d.Messages.InboxForCurrentUser},
		{http.MethodGet, "/messages/inbox/:user_id", byUser, d.Messages.InboxForUser},
		{http.MethodGet, "/messages/unread", middleware.Authenticated, d.Messages.UnreadForCurrentUser},
		{http.MethodGet, "/messages/unread/:user_id", byUser, d.Messages.UnreadForUser},
		{http.MethodGet, "/messages/:id", middleware.Authenticated, d.Messages.GetMessage},
	}
}

// New builds the gin engine with the shared middleware stack and the route table.
func New(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.ServiceName == "" {
		d.ServiceName = "messaging-service"
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		observability.RequestIDMiddleware(),
		otelgin.Middleware(d.ServiceName),
		logging.RequestLogger(d.Log),
		observability.HTTPMetricsMiddleware(),
		middleware.CORS(d.CORSAllowedOrigins),
	)

	for _, rt := range Routes(d) {
		r.Handle(rt.Method, rt.Path, middleware.Guard(d.Tokens, rt.Policy), rt.Handler)
	}
	return r
}
