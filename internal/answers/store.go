// Package answers stores canonical answers keyed by question identity.
package answers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/canonical"
	"github.com/router-for-me/AnswerGateway/internal/db"
	"github.com/router-for-me/AnswerGateway/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxPageSize caps catalog page sizes.
const MaxPageSize = 100

// Direction is a vote direction.
type Direction int

// Vote directions.
const (
	Up Direction = iota + 1
	Down
)

// ParseDirection parses "up" or "down".
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	default:
		return 0, false
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return ""
	}
}

// Order selects the catalog ranking.
type Order string

// Catalog orders.
const (
	OrderPopular Order = "popular"
	OrderScore   Order = "score"
)

// NewAnswer carries the generated content of a first-time answer.
type NewAnswer struct {
	Question  string
	Text      string
	ModelUsed string
	Tokens    models.TokenUsage
	Sources   []string
}

// SEO holds the publication metadata of an answer.
type SEO struct {
	URL         string
	Title       string
	Description string
}

// ListQuery filters the published catalog.
type ListQuery struct {
	Platform string // "" or "all" lists every platform.
	Page     int    // 1-based.
	PageSize int    // 1..MaxPageSize.
	Order    Order  // Defaults to OrderPopular.
}

// Store persists answers with GORM.
type Store struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewStore constructs a Store; nowFn defaults to time.Now.
func NewStore(conn *gorm.DB, nowFn func() time.Time) *Store {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Store{db: conn, nowFn: nowFn}
}

func (s *Store) now() time.Time { return s.nowFn().UTC() }

// Lookup returns the answer for key, or nil when none exists.
func (s *Store) Lookup(ctx context.Context, key string) (*models.Answer, error) {
	var answer models.Answer
	if errFind := s.db.WithContext(ctx).Where("canonical_key = ?", key).Take(&answer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("answers: lookup: %w", errFind)
	}
	return &answer, nil
}

// Get loads an answer by id.
func (s *Store) Get(ctx context.Context, id uint64) (*models.Answer, error) {
	var answer models.Answer
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).Take(&answer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apierr.Missing("Answer")
		}
		return nil, fmt.Errorf("answers: get: %w", errFind)
	}
	return &answer, nil
}

// RecordHit increments popularity in place and returns the updated answer.
func (s *Store) RecordHit(ctx context.Context, id uint64) (*models.Answer, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"popularity":  gorm.Expr("popularity + ?", 1),
			"last_hit_at": s.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("answers: record hit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("Answer")
	}
	return s.Get(ctx, id)
}

// InsertNew creates the answer for key with popularity 1.
// A concurrent insert of the same key yields an apierr.DuplicateKey error.
func (s *Store) InsertNew(ctx context.Context, key string, in NewAnswer) (*models.Answer, error) {
	// Text outside the slug alphabet yields an empty question part; the key is still valid.
	platform, version, _, ok := canonical.Parse(key)
	if !ok {
		return nil, apierr.Invalid("malformed canonical key %q", key)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, apierr.New(apierr.EmptyResponse, "answer text is empty")
	}
	sources := in.Sources
	if sources == nil {
		sources = []string{}
	}
	now := s.now()
	answer := &models.Answer{
		CanonicalKey:     key,
		OriginalQuestion: strings.TrimSpace(in.Question),
		Platform:         platform,
		Version:          version,
		AnswerText:       in.Text,
		ModelUsed:        in.ModelUsed,
		Tokens:           in.Tokens,
		Sources:          datatypes.JSONSlice[string](sources),
		Popularity:       1,
		LastHitAt:        now,
	}
	if errCreate := s.db.WithContext(ctx).Create(answer).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			return nil, apierr.Wrap(apierr.DuplicateKey, "answer already exists", errCreate)
		}
		return nil, fmt.Errorf("answers: insert: %w", errCreate)
	}
	return answer, nil
}

// LookupOrInsert inserts the answer, converging on the existing record as a hit when another writer won.
func (s *Store) LookupOrInsert(ctx context.Context, key string, in NewAnswer) (*models.Answer, bool, error) {
	created, errInsert := s.InsertNew(ctx, key, in)
	if errInsert == nil {
		return created, true, nil
	}
	if !apierr.Is(errInsert, apierr.DuplicateKey) {
		return nil, false, errInsert
	}
	existing, errLookup := s.Lookup(ctx, key)
	if errLookup != nil {
		return nil, false, errLookup
	}
	if existing == nil {
		return nil, false, fmt.Errorf("answers: %s vanished after duplicate insert", key)
	}
	hit, errHit := s.RecordHit(ctx, existing.ID)
	if errHit != nil {
		return nil, false, errHit
	}
	return hit, false, nil
}

// ApplyVote increments one vote column and recomputes score in the same statement.
func (s *Store) ApplyVote(ctx context.Context, id uint64, direction Direction) (*models.Answer, error) {
	var updates map[string]any
	switch direction {
	case Up:
		updates = map[string]any{
			"ups":   gorm.Expr("ups + 1"),
			"score": gorm.Expr("ups + 1 - downs"),
		}
	case Down:
		updates = map[string]any{
			"downs": gorm.Expr("downs + 1"),
			"score": gorm.Expr("ups - (downs + 1)"),
		}
	default:
		return nil, apierr.Invalid(`Vote must be "up" or "down"`)
	}
	res := s.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("answers: vote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("Answer")
	}
	return s.Get(ctx, id)
}

// ListPublished returns one page of the published catalog and the total number of matches.
func (s *Store) ListPublished(ctx context.Context, q ListQuery) ([]models.Answer, int64, error) {
	if q.Page < 1 {
		return nil, 0, apierr.Invalid("Invalid page number")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return nil, 0, apierr.Invalid("Limit must be between 1 and %d", MaxPageSize)
	}
	var orderBy string
	switch q.Order {
	case "", OrderPopular:
		orderBy = "popularity DESC, created_at DESC, id DESC"
	case OrderScore:
		orderBy = "score DESC, popularity DESC, id DESC"
	default:
		return nil, 0, apierr.Invalid("unknown sort %q", string(q.Order))
	}

	published := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Answer{}).Where("published = ?", true)
		if platform := strings.TrimSpace(q.Platform); platform != "" && !strings.EqualFold(platform, "all") {
			query = query.Where("platform = ?", canonical.PlatformSlug(platform))
		}
		return query
	}

	var total int64
	if errCount := published().Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("answers: count published: %w", errCount)
	}

	var rows []models.Answer
	if errFind := published().
		Order(orderBy).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("answers: list published: %w", errFind)
	}
	return rows, total, nil
}

// Publish lists the answer in the public catalog with the given metadata.
func (s *Store) Publish(ctx context.Context, id uint64, seo SEO) (*models.Answer, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published":       true,
			"published_url":   seo.URL,
			"seo_title":       seo.Title,
			"seo_description": seo.Description,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("answers: publish: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("Answer")
	}
	return s.Get(ctx, id)
}

// Revise replaces the answer text; a changed text withdraws the answer from the catalog.
func (s *Store) Revise(ctx context.Context, id uint64, text string) (*models.Answer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apierr.Invalid("answer text is required")
	}
	res := s.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published":     gorm.Expr("CASE WHEN answer_text = ? THEN published ELSE FALSE END", text),
			"published_url": gorm.Expr("CASE WHEN answer_text = ? THEN published_url ELSE '' END", text),
			"answer_text":   text,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("answers: revise: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("Answer")
	}
	return s.Get(ctx, id)
}
