package http

import (
	"context"
	"net"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"shop-auth/internal/auth"
	"shop-auth/internal/config"
	"shop-auth/internal/http/handler"
	"shop-auth/internal/http/middleware"
	"shop-auth/internal/permission"
	"shop-auth/pkg/metrics"
	"shop-auth/pkg/profiling"
	"shop-auth/pkg/validator"
)

const requestBodyLimit = "1M"

const (
	opUser   permission.Operation = "USER"
	opSystem permission.Operation = "SYSTEM"
)

// RequiredOperations must be in the catalog, or the administrative routes
// cannot be reached by anyone.
var RequiredOperations = []permission.Operation{opUser, opSystem}

type ServerDependencies struct {
	Config     *config.Config
	Log        logrus.FieldLogger
	Model      *permission.Model
	Filter     *auth.Filter
	Authorizer *auth.Authorizer
	Gate       handler.TokenGate
	Accounts   handler.AccountService
	System     handler.SystemService
	Audit      handler.AuditRecorder
	Metrics    *metrics.Collector
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = validator.New()

	var trusted []*net.IPNet
	if deps.Config != nil {
		e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
		e.Server.WriteTimeout = deps.Config.Server.WriteTimeout
		trusted = deps.Config.Server.TrustedProxies
	}
	e.IPExtractor = ipExtractor(trusted)

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(deps.Metrics.Middleware())

	// The filter only installs a principal; routes decide whether to deny.
	e.Use(deps.Filter.Authenticate())
	e.Use(middleware.NewGlobalRateLimiter().Middleware())

	registerRoutes(e, deps)

	return &Server{
		echo: e,
		deps: deps,
	}
}

// ipExtractor decides what the rate limiter and the audit log see as the
// client address. Forwarding headers are ignored unless the peer is one of
// the configured proxies; echo's default would believe any client.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func registerRoutes(e *echo.Echo, deps *ServerDependencies) {
	security := handler.NewSecurityHandler(deps.Gate, deps.Audit)
	users := handler.NewUserHandler(deps.Accounts, deps.Model.Catalog(), deps.Audit)
	system := handler.NewSystemHandler(deps.System, deps.Audit, deps.Metrics)
	authz := deps.Authorizer

	e.GET("/health", handler.Health)

	v1 := e.Group("/api/v1")

	sec := v1.Group("/security", middleware.NewStrictRateLimiter().Middleware())
	sec.POST("/tokens", security.Tokens)
	sec.POST("/access-token", security.AccessToken)
	sec.POST("/refresh-token", security.RefreshToken)

	userAdmin := authz.RequireAuthority(permission.Authority(opUser, permission.FunctionCreateUpdate))
	v1.POST("/users", users.Register, middleware.NewStrictRateLimiter().Middleware())
	v1.GET("/users/me", users.Me, authz.RequireAuthenticated())
	v1.PUT("/users/:username/permissions/:operation/:function", users.GrantPermission, userAdmin)
	v1.DELETE("/users/:username/permissions/:operation/:function", users.RevokePermission, userAdmin)

	sys := v1.Group("/system")
	systemRead := authz.RequireAuthority(permission.Authority(opSystem, permission.FunctionRead))
	systemWrite := authz.RequireAuthority(permission.Authority(opSystem, permission.FunctionCreateUpdate))
	sys.POST("/token-key", system.RotateKey, systemWrite)
	sys.POST("/token-key/generate", system.RotateToGeneratedKey, systemWrite)
	sys.GET("/time-zone", system.TimeZone, systemRead)
	sys.GET("/audit-events", system.AuditEvents, systemRead)
	sys.GET("/metrics", system.Metrics, systemRead)

	if deps.Config != nil && deps.Config.Server.Profiling {
		profiling.Register(sys.Group("/debug", systemRead))
	}
}

func (s *Server) Handler() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
