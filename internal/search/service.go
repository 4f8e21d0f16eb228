package search

import (
	"context"

	"github.com/rs/zerolog"
)

// Service is the facade that tries Meilisearch first and falls back to
// Postgres full-text search.
type Service struct {
	meili *Meili
	pgfts *PgFTS
	log   zerolog.Logger
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS, log zerolog.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, log: log}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn().Err(err).Msg("meilisearch error, falling back to pgfts")
	}

	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Msg("pgfts search failed")
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexComment pushes a comment to Meilisearch without blocking the caller.
func (s *Service) IndexComment(rec CommentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexComment(rec); err != nil {
			s.log.Warn().Err(err).Str("id", rec.ID).Msg("index comment failed")
		}
	}()
}

// DeleteComment removes a comment from the index without blocking.
func (s *Service) DeleteComment(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteComment(id); err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("delete comment from index failed")
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
