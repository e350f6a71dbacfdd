package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"shop-auth/internal/audit"
	"shop-auth/internal/config"
	httpserver "shop-auth/internal/http"
	"shop-auth/internal/repository/postgres"
)

const serverAddrPrefix = ":"

// Service is the running authentication server
type Service struct {
	config *config.Config
	log    logrus.FieldLogger
	db     *postgres.DB
	audit  *audit.Logger
	server *httpserver.Server
}

// Start blocks until the HTTP server stops. A graceful shutdown is not an error.
func (s *Service) Start() error {
	s.log.WithField("port", s.config.Server.Port).Info("starting HTTP server")
	if err := s.server.Start(serverAddrPrefix + s.config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for pending audit writes and
// closes the database pool.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.audit.Wait()
	s.db.Close()
	return err
}
