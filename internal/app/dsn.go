package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// dsnInfo is the loggable part of a database DSN.
type dsnInfo struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (i dsnInfo) fields() log.Fields {
	if i.Type == "sqlite" {
		return log.Fields{"type": i.Type, "path": i.Path}
	}
	return log.Fields{
		"type":         i.Type,
		"host":         i.Host,
		"port":         i.Port,
		"user":         i.User,
		"name":         i.Name,
		"sslmode":      i.SSLMode,
		"password_set": i.PasswordSet,
	}
}

// describeDSN parses dsn without retaining its password.
func describeDSN(dsn string) (dsnInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsnInfo{}, fmt.Errorf("empty dsn")
	}

	lowered := strings.ToLower(trimmed)
	if strings.Contains(lowered, "host=") && strings.Contains(lowered, "dbname=") {
		return describeKeyValueDSN(trimmed), nil
	}
	if !strings.Contains(lowered, "://") {
		pathPart := trimmed
		if strings.HasPrefix(lowered, "file:") {
			pathPart = trimmed[len("file:"):]
		}
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return dsnInfo{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return dsnInfo{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "postgres", "postgresql":
		port := 5432
		if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
			parsedPort, errPort := strconv.Atoi(rawPort)
			if errPort != nil {
				return dsnInfo{}, fmt.Errorf("parse port: %w", errPort)
			}
			port = parsedPort
		}

		info := dsnInfo{
			Type:    "postgres",
			Host:    strings.TrimSpace(u.Hostname()),
			Port:    port,
			Name:    strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
			SSLMode: strings.TrimSpace(u.Query().Get("sslmode")),
		}
		if info.SSLMode == "" {
			info.SSLMode = "disable"
		}
		if u.User != nil {
			info.User = strings.TrimSpace(u.User.Username())
			_, info.PasswordSet = u.User.Password()
		}
		return info, nil
	default:
		return dsnInfo{}, fmt.Errorf("unsupported dsn scheme")
	}
}

// describeKeyValueDSN reads a libpq "key=value" connection string.
func describeKeyValueDSN(dsn string) dsnInfo {
	info := dsnInfo{Type: "postgres", Port: 5432, SSLMode: "disable"}
	for _, field := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, "'")
		switch strings.ToLower(key) {
		case "host":
			info.Host = value
		case "port":
			if parsed, errPort := strconv.Atoi(value); errPort == nil {
				info.Port = parsed
			}
		case "user":
			info.User = value
		case "dbname":
			info.Name = value
		case "sslmode":
			info.SSLMode = value
		case "password":
			info.PasswordSet = value != ""
		}
	}
	return info
}
