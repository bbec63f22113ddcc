// Package search serves the public discovery surface: full-text search,
// catalog browsing and program detail, with read-through caching in front
// of the read model.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/tariqnasser/airwave-backend/pkg/errors"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
	pkgredis "github.com/tariqnasser/airwave-backend/pkg/redis"
)

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SearchKey(scope, digest string) string
	BrowseKey(scope, digest string) string
}

type ServiceParams struct {
	Logger     *logger.Logger
	Repository *Repository
	// Cache may be nil; the service then reads straight from the database.
	Cache     cache
	SearchTTL time.Duration
	BrowseTTL time.Duration
}

type Service struct {
	logg      *logger.Logger
	repo      *Repository
	cache     cache
	searchTTL time.Duration
	browseTTL time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.SearchTTL <= 0 {
		params.SearchTTL = 5 * time.Minute
	}
	if params.BrowseTTL <= 0 {
		params.BrowseTTL = 10 * time.Minute
	}
	return &Service{
		logg:      params.Logger,
		repo:      params.Repository,
		cache:     params.Cache,
		searchTTL: params.SearchTTL,
		browseTTL: params.BrowseTTL,
	}, nil
}

// Search runs full-text search over programs and episodes.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}

	key := s.searchKey("all", query, limit, offset)
	if cached, ok := s.fromCache(ctx, key, &SearchResult{}); ok {
		return cached.(*SearchResult), nil
	}

	programs, programTotal, err := s.repo.SearchPrograms(ctx, query, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: search programs")
	}
	episodes, episodeTotal, err := s.repo.SearchEpisodes(ctx, query, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: search episodes")
	}

	result := &SearchResult{
		Query:    query,
		Programs: programResults(programs),
		Episodes: episodeResults(episodes),
		Total:    programTotal + episodeTotal,
	}
	s.toCache(ctx, key, result, s.searchTTL)
	return result, nil
}

// Browse lists the program catalog by category, type and feature flags.
func (s *Service) Browse(ctx context.Context, filter BrowseFilter) (*BrowseResult, error) {
	key := s.browseKey(filter)
	if cached, ok := s.fromCache(ctx, key, &BrowseResult{}); ok {
		return cached.(*BrowseResult), nil
	}

	programs, total, err := s.repo.BrowsePrograms(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: browse programs")
	}

	result := &BrowseResult{
		Programs: programResults(programs),
		Total:    total,
	}
	s.toCache(ctx, key, result, s.browseTTL)
	return result, nil
}

// Program returns one program with a page of its episodes.
func (s *Service) Program(ctx context.Context, id uuid.UUID, limit, offset int) (*ProgramDetail, error) {
	program, err := s.repo.GetProgram(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load program")
	}
	if program == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "program not found")
	}

	episodes, total, err := s.repo.ListProgramEpisodes(ctx, id, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list program episodes")
	}

	return &ProgramDetail{
		Program:  newProgramResult(program),
		Episodes: episodeResults(episodes),
		Total:    total,
	}, nil
}

func (s *Service) searchKey(scope, query string, limit, offset int) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.SearchKey(scope, digest(query, strconv.Itoa(limit), strconv.Itoa(offset)))
}

func (s *Service) browseKey(filter BrowseFilter) string {
	if s.cache == nil {
		return ""
	}
	parts := []string{
		deref(filter.Category),
		deref(filter.Type),
		deref(filter.Language),
		boolPart(filter.Featured),
		filter.Sort,
		strconv.Itoa(filter.Limit),
		strconv.Itoa(filter.Offset),
	}
	return s.cache.BrowseKey("programs", digest(parts...))
}

// fromCache is best effort: any cache failure falls through to the database.
func (s *Service) fromCache(ctx context.Context, key string, target any) (any, bool) {
	if s.cache == nil || key == "" {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsMiss(err) {
			s.logg.Warn(ctx, "cache read failed: "+err.Error())
		}
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.logg.Warn(ctx, "cache entry corrupt, ignoring")
		return nil, false
	}
	return target, true
}

func (s *Service) toCache(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil || key == "" {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), ttl); err != nil {
		s.logg.Warn(ctx, "cache write failed: "+err.Error())
	}
}

func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:8])
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func boolPart(value *bool) string {
	if value == nil {
		return ""
	}
	return strconv.FormatBool(*value)
}
