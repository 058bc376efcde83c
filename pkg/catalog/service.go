package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/globalmed/clinic-catalog/pkg/client"
	"github.com/globalmed/clinic-catalog/pkg/logging"
	"github.com/globalmed/clinic-catalog/pkg/pager"
)

// API paths.
const (
	PathDoctors      = "/doctors"
	PathCheckups     = "/checkups"
	PathMedicalTests = "/medical-tests"
)

// ErrMalformedResponse marks an API body that lacks required fields.
var ErrMalformedResponse = fmt.Errorf("%w: clinic api response", pager.ErrMalformed)

// JSONGetter is the transport the service needs. *client.Client implements it.
type JSONGetter interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

// Service reads the clinic catalog from the API.
type Service struct {
	api    JSONGetter
	logger zerolog.Logger
}

// NewService creates a catalog service over api.
func NewService(api JSONGetter) *Service {
	return &Service{
		api:    api,
		logger: logging.NewLogger("catalog"),
	}
}

type pageMeta struct {
	CurrentPage *int `json:"current_page"`
	LastPage    *int `json:"last_page"`
	Total       int  `json:"total"`
}

type pageEnvelope[T any] struct {
	Data *[]T      `json:"data"`
	Meta *pageMeta `json:"meta"`
}

type listEnvelope[T any] struct {
	Data *[]T `json:"data"`
}

type itemEnvelope[T any] struct {
	Data *T `json:"data"`
}

// Doctors returns the paginated doctors collection as a pager.Fetcher.
// Filters are the encoding of DoctorFilters.
func (s *Service) Doctors() pager.Fetcher[Doctor] {
	return pager.FetchFunc[Doctor](s.fetchDoctors)
}

func (s *Service) fetchDoctors(ctx context.Context, filters pager.Filters, page int) (pager.PageResult[Doctor], error) {
	query := filters.Values()
	if query == nil {
		query = url.Values{}
	}
	if locale := query.Get(LocaleParam); locale != "" {
		ctx = client.WithLocale(ctx, locale)
		query.Del(LocaleParam)
	}
	query.Set("page", strconv.Itoa(page))

	var env pageEnvelope[Doctor]
	if err := s.getJSON(ctx, PathDoctors, query, &env); err != nil {
		return pager.PageResult[Doctor]{}, err
	}

	switch {
	case env.Data == nil:
		return pager.PageResult[Doctor]{}, fmt.Errorf("%w: doctors page %d: missing data", ErrMalformedResponse, page)
	case env.Meta == nil || env.Meta.CurrentPage == nil:
		return pager.PageResult[Doctor]{}, fmt.Errorf("%w: doctors page %d: missing meta.current_page", ErrMalformedResponse, page)
	case env.Meta.LastPage == nil:
		return pager.PageResult[Doctor]{}, fmt.Errorf("%w: doctors page %d: missing meta.last_page", ErrMalformedResponse, page)
	}

	// Laravel reports last_page 1 for an empty collection, but be lenient
	totalPages := max(*env.Meta.LastPage, 1)

	s.logger.Debug().
		Int("page", *env.Meta.CurrentPage).
		Int("total_pages", totalPages).
		Int("items", len(*env.Data)).
		Msg("Doctors page fetched")

	return pager.PageResult[Doctor]{
		Items:       *env.Data,
		CurrentPage: *env.Meta.CurrentPage,
		TotalPages:  totalPages,
	}, nil
}

// ListCheckups returns all check-up programs.
func (s *Service) ListCheckups(ctx context.Context) ([]Checkup, error) {
	var env listEnvelope[Checkup]
	if err := s.getJSON(ctx, PathCheckups, nil, &env); err != nil {
		return nil, fmt.Errorf("list checkups: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("list checkups: %w: missing data", ErrMalformedResponse)
	}
	return *env.Data, nil
}

// ListAnalyses returns all laboratory analyses.
func (s *Service) ListAnalyses(ctx context.Context) ([]Analysis, error) {
	var env listEnvelope[Analysis]
	if err := s.getJSON(ctx, PathMedicalTests, nil, &env); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("list analyses: %w: missing data", ErrMalformedResponse)
	}
	return *env.Data, nil
}

// GetAnalysis returns the analysis with the given slug.
func (s *Service) GetAnalysis(ctx context.Context, slug string) (*Analysis, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.New("analysis slug is required")
	}

	var env itemEnvelope[Analysis]
	if err := s.getJSON(ctx, PathMedicalTests+"/"+url.PathEscape(slug), nil, &env); err != nil {
		return nil, fmt.Errorf("get analysis %q: %w", slug, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("get analysis %q: %w: missing data", slug, ErrMalformedResponse)
	}
	return env.Data, nil
}

// getJSON maps undecodable bodies onto ErrMalformedResponse.
func (s *Service) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	err := s.api.GetJSON(ctx, path, query, out)
	if errors.Is(err, client.ErrDecode) {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return err
}
