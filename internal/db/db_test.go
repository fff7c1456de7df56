package db

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/router-for-me/AnswerGateway/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "gateway-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("second migrate: %v", errMigrate)
	}
	if !conn.Migrator().HasTable(&models.Answer{}) || !conn.Migrator().HasTable(&models.User{}) {
		t.Fatalf("expected answers and users tables")
	}
}

func TestLookupMissIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	previous := log.StandardLogger().Out
	log.SetOutput(&buf)
	defer log.SetOutput(previous)

	conn, err := Open(filepath.Join(t.TempDir(), "gateway-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	var answer models.Answer
	errFind := conn.Where("canonical_key = ?", "mozaik:generic:missing").Take(&answer).Error
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", errFind)
	}
	if strings.Contains(buf.String(), "record not found") {
		t.Fatalf("expected miss to stay out of the log, got %q", buf.String())
	}
}

func TestUniqueViolationOnCanonicalKey(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "gateway-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	first := models.Answer{CanonicalKey: "mozaik:generic:q", OriginalQuestion: "q", Platform: "mozaik", Version: "generic", AnswerText: "a", ModelUsed: "m"}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create first: %v", errCreate)
	}
	second := models.Answer{CanonicalKey: "mozaik:generic:q", OriginalQuestion: "q", Platform: "mozaik", Version: "generic", AnswerText: "b", ModelUsed: "m"}
	errCreate := conn.Create(&second).Error
	if !IsUniqueViolation(errCreate) {
		t.Fatalf("expected unique violation, got %v", errCreate)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatalf("nil is not a violation")
	}
	if !IsUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm duplicated key to match")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Fatalf("unexpected match for unrelated error")
	}
}

func TestIsPostgresDSN(t *testing.T) {
	cases := []struct {
		dsn  string
		want bool
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", true},
		{"postgresql://localhost/db", true},
		{"host=localhost user=u dbname=db", true},
		{"gateway.db", false},
		{"file:gateway.db?_busy_timeout=5000", false},
	}
	for _, tc := range cases {
		if got := isPostgresDSN(tc.dsn); got != tc.want {
			t.Fatalf("isPostgresDSN(%q): expected %v, got %v", tc.dsn, tc.want, got)
		}
	}
}
