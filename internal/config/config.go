package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envEnableProfiling       = "ENABLE_PROFILING"
	envTrustedProxies        = "TRUSTED_PROXIES"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envJWTKey                = "JWT_KEY"
	envTimeZone              = "APP_TIME_ZONE"
	envAccessTTLHours        = "JWT_ACCESS_TTL_HOURS"
	envRefreshTTLHours       = "JWT_REFRESH_TTL_HOURS"
	envSecurityRoles         = "SECURITY_ROLES"
	envSecurityOperations    = "SECURITY_OPERATIONS"
	envAdminUsername         = "BOOTSTRAP_ADMIN_USERNAME"
	envAdminEmail            = "BOOTSTRAP_ADMIN_EMAIL"
	envAdminPassword         = "BOOTSTRAP_ADMIN_PASSWORD"
	envLogLevel              = "LOG_LEVEL"
	envLogFormat             = "LOG_FORMAT"
)

const (
	defaultServerPort         = "8080"
	defaultServerReadTimeout  = 10 * time.Second
	defaultServerWriteTimeout = 10 * time.Second
	defaultServerShutdown     = 10 * time.Second
	defaultDBHost             = "localhost"
	defaultDBPort             = 5432
	defaultDBName             = "shopauth"
	defaultDBUser             = "shopauth_app"
	defaultDBSSLMode          = "disable"
	defaultDBMaxConns         = 25
	defaultDBMinConns         = 5
	defaultTimeZone           = "UTC"
	defaultAccessTTLHours     = 24
	defaultRefreshTTLHours    = 8760
	defaultSecurityRoles      = "USER,STAFF,ADMIN"
	defaultSecurityOperations = "ITEM,USER,STATISTIC,SYSTEM"
	defaultLogLevel           = "info"
	defaultLogFormat          = "text"

	listSeparator = ","
	envFile       = ".env"
)

const (
	errPortRequired            = "PORT must be set"
	errDBPasswordRequired      = "DB_PASSWORD must be set"
	errJWTKeyRequired          = "JWT_KEY must be set"
	errTTLNotPositiveFmt       = "%s must be at least 1, got %d"
	errTimeZoneInvalidFmt      = "APP_TIME_ZONE %q: %w"
	errListEmptyFmt            = "%s must list at least one value"
	errAdminIncomplete         = "BOOTSTRAP_ADMIN_USERNAME, BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together"
	errTrustedProxyInvalidFmt  = "TRUSTED_PROXIES entry %q: %w"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Bootstrap BootstrapConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// Profiling mounts pprof under the system routes.
	Profiling bool
	// TrustedProxies are the only peers whose X-Forwarded-For is believed.
	// Empty means the TCP peer address is the client address.
	TrustedProxies []*net.IPNet
	trustedProxies []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// JWTConfig is the token configuration. Location is resolved from TimeZone
// during validation and never changes afterwards.
type JWTConfig struct {
	Key             string
	TimeZone        string
	Location        *time.Location
	AccessTTLHours  int
	RefreshTTLHours int
}

// SecurityConfig lists roles least privileged first, and the protected operations.
type SecurityConfig struct {
	Roles      []string
	Operations []string
}

type BootstrapConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func (b BootstrapConfig) Enabled() bool {
	return b.AdminUsername != ""
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads .env if present. A missing file is not an error.
func LoadDotEnv() error {
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func Load() (*Config, error) {
	return LoadFrom(newViper())
}

// LoadFrom reads configuration from v. Tests pass their own instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString(envPort),
			ReadTimeout:     v.GetDuration(envServerReadTimeout),
			WriteTimeout:    v.GetDuration(envServerWriteTimeout),
			ShutdownTimeout: v.GetDuration(envServerShutdownTimeout),
			Profiling:       v.GetBool(envEnableProfiling),
			trustedProxies:  splitRaw(v.GetString(envTrustedProxies)),
		},
		Database: DatabaseConfig{
			Host:     v.GetString(envDBHost),
			Port:     v.GetInt(envDBPort),
			Database: v.GetString(envDBName),
			User:     v.GetString(envDBUser),
			Password: v.GetString(envDBPassword),
			SSLMode:  v.GetString(envDBSSLMode),
			MaxConns: v.GetInt(envDBMaxConns),
			MinConns: v.GetInt(envDBMinConns),
		},
		JWT: JWTConfig{
			Key:             v.GetString(envJWTKey),
			TimeZone:        v.GetString(envTimeZone),
			AccessTTLHours:  v.GetInt(envAccessTTLHours),
			RefreshTTLHours: v.GetInt(envRefreshTTLHours),
		},
		Security: SecurityConfig{
			Roles:      splitList(v.GetString(envSecurityRoles)),
			Operations: splitList(v.GetString(envSecurityOperations)),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: v.GetString(envAdminUsername),
			AdminEmail:    v.GetString(envAdminEmail),
			AdminPassword: v.GetString(envAdminPassword),
		},
		Log: LogConfig{
			Level:  v.GetString(envLogLevel),
			Format: v.GetString(envLogFormat),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New(errPortRequired)
	}

	if c.Database.Password == "" {
		return errors.New(errDBPasswordRequired)
	}

	// Strength is checked when the key is installed; a persisted key may
	// replace this one at startup.
	if c.JWT.Key == "" {
		return errors.New(errJWTKeyRequired)
	}

	if c.JWT.AccessTTLHours < 1 {
		return fmt.Errorf(errTTLNotPositiveFmt, envAccessTTLHours, c.JWT.AccessTTLHours)
	}
	if c.JWT.RefreshTTLHours < 1 {
		return fmt.Errorf(errTTLNotPositiveFmt, envRefreshTTLHours, c.JWT.RefreshTTLHours)
	}

	if err := c.Server.parseTrustedProxies(); err != nil {
		return err
	}

	loc, err := time.LoadLocation(c.JWT.TimeZone)
	if err != nil {
		return fmt.Errorf(errTimeZoneInvalidFmt, c.JWT.TimeZone, err)
	}
	c.JWT.Location = loc

	if len(c.Security.Roles) == 0 {
		return fmt.Errorf(errListEmptyFmt, envSecurityRoles)
	}
	if len(c.Security.Operations) == 0 {
		return fmt.Errorf(errListEmptyFmt, envSecurityOperations)
	}

	b := c.Bootstrap
	if b.Enabled() || b.AdminEmail != "" || b.AdminPassword != "" {
		if b.AdminUsername == "" || b.AdminEmail == "" || b.AdminPassword == "" {
			return errors.New(errAdminIncomplete)
		}
	}

	return nil
}

func (s *ServerConfig) parseTrustedProxies() error {
	if len(s.trustedProxies) == 0 {
		return nil
	}
	nets := make([]*net.IPNet, 0, len(s.trustedProxies))
	for _, cidr := range s.trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf(errTrustedProxyInvalidFmt, cidr, err)
		}
		nets = append(nets, ipNet)
	}
	s.TrustedProxies = nets
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(envPort, defaultServerPort)
	v.SetDefault(envServerReadTimeout, defaultServerReadTimeout)
	v.SetDefault(envServerWriteTimeout, defaultServerWriteTimeout)
	v.SetDefault(envServerShutdownTimeout, defaultServerShutdown)
	v.SetDefault(envDBHost, defaultDBHost)
	v.SetDefault(envDBPort, defaultDBPort)
	v.SetDefault(envDBName, defaultDBName)
	v.SetDefault(envDBUser, defaultDBUser)
	v.SetDefault(envDBSSLMode, defaultDBSSLMode)
	v.SetDefault(envDBMaxConns, defaultDBMaxConns)
	v.SetDefault(envDBMinConns, defaultDBMinConns)
	v.SetDefault(envTimeZone, defaultTimeZone)
	v.SetDefault(envAccessTTLHours, defaultAccessTTLHours)
	v.SetDefault(envRefreshTTLHours, defaultRefreshTTLHours)
	v.SetDefault(envSecurityRoles, defaultSecurityRoles)
	v.SetDefault(envSecurityOperations, defaultSecurityOperations)
	v.SetDefault(envLogLevel, defaultLogLevel)
	v.SetDefault(envLogFormat, defaultLogFormat)

	return v
}

// NewViper returns a viper instance with every default applied.
func NewViper() *viper.Viper {
	return newViper()
}

func splitList(raw string) []string {
	out := splitRaw(raw)
	for i, p := range out {
		out[i] = strings.ToUpper(p)
	}
	return out
}

func splitRaw(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, listSeparator) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
