package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"shop-auth/internal/account"
	"shop-auth/internal/audit"
	"shop-auth/internal/auth"
	"shop-auth/internal/config"
	httpserver "shop-auth/internal/http"
	"shop-auth/internal/permission"
	"shop-auth/internal/rbac"
	"shop-auth/internal/repository/postgres"
	"shop-auth/internal/system"
	"shop-auth/pkg/metrics"
	"shop-auth/pkg/password"
)

const errMissingOperationFmt = "SECURITY_OPERATIONS must include %s"

// BuildModel turns the configured role and operation names into the
// permission model shared by every component.
func BuildModel(sec config.SecurityConfig) (*permission.Model, error) {
	roles := make([]permission.Role, 0, len(sec.Roles))
	for _, r := range sec.Roles {
		roles = append(roles, permission.Role(r))
	}
	h, err := permission.NewHierarchy(roles...)
	if err != nil {
		return nil, err
	}

	ops := make([]permission.Operation, 0, len(sec.Operations))
	for _, o := range sec.Operations {
		ops = append(ops, permission.Operation(o))
	}
	c, err := permission.NewCatalog(ops...)
	if err != nil {
		return nil, err
	}

	for _, op := range httpserver.RequiredOperations {
		if !c.Contains(op) {
			return nil, fmt.Errorf(errMissingOperationFmt, op)
		}
	}
	return permission.NewModel(h, c), nil
}

// InitializeService wires up all dependencies, installs the signing key and
// returns a service ready to Start.
func InitializeService(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Service, error) {
	model, err := BuildModel(cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("failed to build permission model: %w", err)
	}

	db, err := postgres.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	userRepo := postgres.NewUserRepository(db, model, log)
	settingsRepo := postgres.NewSettingsRepository(db)

	keys := auth.NewKeyManager()
	systemSvc := system.NewService(keys, settingsRepo, system.Config{
		SigningKey: cfg.JWT.Key,
		Location:   cfg.JWT.Location,
	}, log)
	if err := systemSvc.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install signing key: %w", err)
	}

	accounts := account.NewService(userRepo, model, password.NewHasher(password.DefaultCost), log)
	if cfg.Bootstrap.Enabled() {
		if _, err := accounts.EnsureAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure bootstrap administrator: %w", err)
		}
	}
	if _, err := accounts.AddMissingAdminPermissions(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to top up administrator permissions: %w", err)
	}

	codec := auth.NewCodec(keys, cfg.JWT.Location)
	issuer := auth.NewIssuer(codec, model.Hierarchy())
	gate := auth.NewGate(issuer, codec, accounts, auth.GateConfig{
		AccessTTLHours:  cfg.JWT.AccessTTLHours,
		RefreshTTLHours: cfg.JWT.RefreshTTLHours,
	}, log)

	voter, err := rbac.NewVoter(model.Hierarchy())
	if err != nil {
		db.Close()
		return nil, err
	}

	auditLogger := audit.NewLogger(audit.NewPostgresStore(db.Pool), log)

	server := httpserver.NewServer(&httpserver.ServerDependencies{
		Config:     cfg,
		Log:        log,
		Model:      model,
		Filter:     auth.NewFilter(codec, model, log),
		Authorizer: auth.NewAuthorizer(voter),
		Gate:       gate,
		Accounts:   accounts,
		System:     systemSvc,
		Audit:      auditLogger,
		Metrics:    metrics.New(),
	})

	return &Service{
		config: cfg,
		log:    log,
		db:     db,
		audit:  auditLogger,
		server: server,
	}, nil
}
