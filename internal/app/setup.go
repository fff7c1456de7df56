package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/router-for-me/AnswerGateway/internal/config"
	"github.com/router-for-me/AnswerGateway/internal/db"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "gateway.db"

// minAdminKeyLength bounds the admin key accepted by setup.
const minAdminKeyLength = 12

// ErrAlreadyInitialized reports that a config file already exists.
var ErrAlreadyInitialized = errors.New("config file already exists")

// SetupRequest contains parameters for writing the first config file.
type SetupRequest struct {
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabasePath     string
	DatabaseSSLMode  string
	JWTSecret        string // Shared with the identity provider; generated when blank.
	AdminKey         string // Stored only as a bcrypt hash.
	Port             int
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// BuildDSN builds a database DSN from the setup request.
func BuildDSN(req SetupRequest) (string, error) {
	switch strings.ToLower(strings.TrimSpace(req.DatabaseType)) {
	case "", "postgres":
		sslMode := req.DatabaseSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			req.DatabaseUser,
			req.DatabasePassword,
			req.DatabaseHost,
			req.DatabasePort,
			req.DatabaseName,
			sslMode,
		), nil
	case "sqlite":
		path := strings.TrimSpace(req.DatabasePath)
		if path == "" {
			path = defaultSQLitePath
		}
		return "file:" + path, nil
	default:
		return "", fmt.Errorf("unsupported database type")
	}
}

// validateSetupRequest normalizes and validates setup input.
func validateSetupRequest(req *SetupRequest) error {
	dbType := strings.ToLower(strings.TrimSpace(req.DatabaseType))
	if dbType == "" {
		dbType = "postgres"
	}
	req.DatabaseType = dbType

	switch dbType {
	case "postgres":
		if strings.TrimSpace(req.DatabaseHost) == "" {
			return fmt.Errorf("database host is required")
		}
		if req.DatabasePort <= 0 {
			return fmt.Errorf("invalid database port")
		}
		if strings.TrimSpace(req.DatabaseUser) == "" {
			return fmt.Errorf("database username is required")
		}
		if strings.TrimSpace(req.DatabaseName) == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if strings.TrimSpace(req.DatabasePath) == "" {
			req.DatabasePath = defaultSQLitePath
		}
	default:
		return fmt.Errorf("unsupported database type %q", req.DatabaseType)
	}
	if len(strings.TrimSpace(req.AdminKey)) < minAdminKeyLength {
		return fmt.Errorf("admin key must be at least %d characters", minAdminKeyLength)
	}
	if req.Port <= 0 {
		req.Port = config.DefaultServiceConfig().Port
	}
	return nil
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Port        int                  `yaml:"port"`
	DatabaseDSN string               `yaml:"database-dsn"`
	JWT         jwtCfg               `yaml:"jwt"`
	Models      config.ModelsConfig  `yaml:"models"`
	Admin       config.AdminConfig   `yaml:"admin"`
	Logging     config.LoggingConfig `yaml:"logging"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// generateSecret returns a random hex string of n bytes.
func generateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// WriteConfigFile writes the initial config file to disk.
func WriteConfigFile(configPath, dsn string, port int, jwtSecret, adminKeyHash string) error {
	defaults := config.DefaultServiceConfig()
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: jwtSecret,
			Expiry: "720h",
		},
		Models:  defaults.Models,
		Admin:   config.AdminConfig{KeyHash: adminKeyHash},
		Logging: defaults.Logging,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}
	return nil
}

// TestDatabaseConnection validates that the DSN can connect, ping, and migrate.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer func() {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}()
	if errPing := sqlDB.Ping(); errPing != nil {
		return fmt.Errorf("failed to ping database: %w", errPing)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("failed to migrate database: %w", errMigrate)
	}
	return nil
}

// RunSetup validates req, prepares the database, and writes the config file.
func RunSetup(configPath string, req SetupRequest) error {
	if ConfigExists(configPath) {
		return ErrAlreadyInitialized
	}
	if errValidate := validateSetupRequest(&req); errValidate != nil {
		return errValidate
	}
	dsn, errBuild := BuildDSN(req)
	if errBuild != nil {
		return errBuild
	}
	if errTest := TestDatabaseConnection(dsn); errTest != nil {
		return errTest
	}

	jwtSecret := strings.TrimSpace(req.JWTSecret)
	if jwtSecret == "" {
		generated, errSecret := generateSecret(32)
		if errSecret != nil {
			return errSecret
		}
		jwtSecret = generated
		log.Warn("generated a jwt secret; share it with the identity provider before issuing tokens")
	}
	hash, errHash := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(req.AdminKey)), bcrypt.DefaultCost)
	if errHash != nil {
		return fmt.Errorf("hash admin key: %w", errHash)
	}

	if errWrite := WriteConfigFile(configPath, dsn, req.Port, jwtSecret, string(hash)); errWrite != nil {
		return errWrite
	}
	log.WithField("config", configPath).Info("setup completed")
	return nil
}
