// Package catalog exposes voting, the public answer catalog, and editorial actions.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/router-for-me/AnswerGateway/internal/answers"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/canonical"
	"github.com/router-for-me/AnswerGateway/internal/models"
	log "github.com/sirupsen/logrus"
)

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 10

// descriptionRunes bounds the answer excerpt in SEO descriptions.
const descriptionRunes = 160

// Store is the answer persistence the catalog needs.
type Store interface {
	Get(ctx context.Context, id uint64) (*models.Answer, error)
	ApplyVote(ctx context.Context, id uint64, direction answers.Direction) (*models.Answer, error)
	ListPublished(ctx context.Context, q answers.ListQuery) ([]models.Answer, int64, error)
	Publish(ctx context.Context, id uint64, seo answers.SEO) (*models.Answer, error)
	Revise(ctx context.Context, id uint64, text string) (*models.Answer, error)
}

// Query selects one catalog page.
type Query struct {
	Platform string
	Page     int
	Limit    int
	Order    answers.Order
}

// Page is one page of published answers.
type Page struct {
	Results     []models.Answer `json:"results"`
	TotalPages  int64           `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Total       int64           `json:"total"`
}

// Service implements catalog operations.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Vote records an up or down vote on an answer.
func (s *Service) Vote(ctx context.Context, answerID uint64, direction string) (*models.Answer, error) {
	parsed, ok := answers.ParseDirection(direction)
	if !ok {
		return nil, apierr.Invalid(`Vote must be "up" or "down"`)
	}
	return s.store.ApplyVote(ctx, answerID, parsed)
}

// Catalog returns a page of published answers.
func (s *Service) Catalog(ctx context.Context, q Query) (*Page, error) {
	rows, total, errList := s.store.ListPublished(ctx, answers.ListQuery{
		Platform: q.Platform,
		Page:     q.Page,
		PageSize: q.Limit,
		Order:    q.Order,
	})
	if errList != nil {
		return nil, errList
	}
	if rows == nil {
		rows = []models.Answer{}
	}
	limit := int64(q.Limit)
	return &Page{
		Results:     rows,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: q.Page,
		Total:       total,
	}, nil
}

// Publish lists an answer in the catalog with generated SEO metadata.
func (s *Service) Publish(ctx context.Context, answerID uint64) (*models.Answer, error) {
	answer, errGet := s.store.Get(ctx, answerID)
	if errGet != nil {
		return nil, errGet
	}
	published, errPublish := s.store.Publish(ctx, answerID, BuildSEO(answer))
	if errPublish != nil {
		return nil, errPublish
	}
	log.WithFields(log.Fields{"answer_id": answerID, "url": published.PublishedURL}).Info("catalog: answer published")
	return published, nil
}

// Revise replaces an answer's text.
func (s *Service) Revise(ctx context.Context, answerID uint64, text string) (*models.Answer, error) {
	revised, errRevise := s.store.Revise(ctx, answerID, text)
	if errRevise != nil {
		return nil, errRevise
	}
	if !revised.Published {
		log.WithField("answer_id", answerID).Info("catalog: answer revised and withdrawn from catalog")
	}
	return revised, nil
}

// BuildSEO derives the publication metadata of an answer.
func BuildSEO(answer *models.Answer) answers.SEO {
	question := strings.TrimSpace(answer.OriginalQuestion)
	if question == "" {
		_, _, question, _ = canonical.Parse(answer.CanonicalKey)
	}
	question = strings.TrimRight(question, "?!. ")

	var title strings.Builder
	fmt.Fprintf(&title, "How to %s in %s", question, answer.Platform)
	if answer.Version != "" && answer.Version != canonical.GenericPart {
		title.WriteString(" " + answer.Version)
	}
	title.WriteString(" | Moe")

	return answers.SEO{
		URL:         canonical.PublicPath(question, answer.Platform, versionOrEmpty(answer.Version)),
		Title:       title.String(),
		Description: fmt.Sprintf("Learn how to %s. %s... Expert guide from Moe.", question, excerpt(answer.AnswerText)),
	}
}

func versionOrEmpty(version string) string {
	if version == canonical.GenericPart {
		return ""
	}
	return version
}

func excerpt(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '#', '*', '`':
			return -1
		}
		return r
	}, text)
	runes := []rune(cleaned)
	if len(runes) > descriptionRunes {
		runes = runes[:descriptionRunes]
	}
	return strings.TrimSpace(string(runes))
}
