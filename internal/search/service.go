package search

import (
	"context"
	"log"
)

// Service tries Meilisearch first and falls back to Postgres. A nil Service
// still answers queries with empty results so callers never guard.
type Service struct {
	meili *Meili
	pg    *PgFallback
}

// NewService creates the search facade. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, pg *PgFallback) *Service {
	return &Service{meili: meili, pg: pg}
}

// Search answers a decision-history query.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s == nil {
		return Response{Results: []DecisionRecord{}, Query: q.Text}
	}
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.pg.Search(ctx, q)
	if err != nil {
		log.Printf("search: postgres fallback error: %v", err)
		return Response{Results: []DecisionRecord{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexDecision pushes one decided round to Meilisearch, fire-and-forget.
func (s *Service) IndexDecision(record DecisionRecord) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexDecision(record); err != nil {
			log.Printf("search: index decision %s: %v", record.ID, err)
		}
	}()
}

// ReindexAll pushes the decided backlog to Meilisearch on boot.
func (s *Service) ReindexAll(records []DecisionRecord) {
	if s == nil || s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexDecisions(records); err != nil {
		log.Printf("search: reindex decisions: %v", err)
	}
}

func nonNil(records []DecisionRecord) []DecisionRecord {
	if records == nil {
		return []DecisionRecord{}
	}
	return records
}
