package db

import (
	"fmt"

	"github.com/router-for-me/AnswerGateway/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(&models.User{}, &models.Answer{}, &models.Usage{}); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errCatalogIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_answers_catalog
		ON answers (popularity DESC, created_at DESC)
		WHERE published
	`).Error; errCatalogIdx != nil {
		return fmt.Errorf("db: create catalog index: %w", errCatalogIdx)
	}
	if errScoreCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_answers_score') THEN
				ALTER TABLE answers ADD CONSTRAINT chk_answers_score CHECK (score = ups - downs);
			END IF;
		END $$;
	`).Error; errScoreCheck != nil {
		return fmt.Errorf("db: add score check: %w", errScoreCheck)
	}
	return nil
}

func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(&models.User{}, &models.Answer{}, &models.Usage{}); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errCatalogIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_answers_catalog
		ON answers (popularity DESC, created_at DESC)
		WHERE published = 1
	`).Error; errCatalogIdx != nil {
		return fmt.Errorf("db: create catalog index: %w", errCatalogIdx)
	}
	return nil
}
