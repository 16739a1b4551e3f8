package semanticscholar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/observability"
	"github.com/helixir/citegraph/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit in requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default HTTP request timeout. Batch calls of
	// 500 papers are slow, so this is longer than for single lookups.
	DefaultTimeout = 60 * time.Second

	// MaxSearchLimit is the largest page the search endpoint accepts.
	MaxSearchLimit = 100

	// referencesPageSize is the page size used when listing references.
	referencesPageSize = 1000

	// maxResponseBytes bounds decoded response bodies.
	maxResponseBytes = 64 << 20

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"

	// metricsSource labels this source in metrics.
	metricsSource = "semantic_scholar"
)

// Endpoint labels used in metrics.
const (
	endpointPaperBatch      = "paper_batch"
	endpointAuthorBatch     = "author_batch"
	endpointPaperSearch     = "paper_search"
	endpointPaperReferences = "paper_references"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxRetries is the number of HTTP retries on 429 and 5xx. Zero disables retries.
	MaxRetries int

	// RetryDelay is the base delay between HTTP retries.
	RetryDelay time.Duration
}

// Client implements papersources.Source for Semantic Scholar.
// It is safe for concurrent use; all goroutines share one rate limiter.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
	metrics    *observability.Metrics
}

// Compile-time check that Client implements papersources.Source.
var _ papersources.Source = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			Source:       sourceName,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// WithMetrics enables request metrics.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// FetchPapers resolves ids with one POST /paper/batch call. The response
// array is aligned with ids; a null entry marks an id the API could not
// resolve, which is reported in notFound.
func (c *Client) FetchPapers(ctx context.Context, ids, fields []string) ([]domain.PaperRecord, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	var results []*PaperResult
	if err := c.postBatch(ctx, endpointPaperBatch, "paper", ids, fields, &results); err != nil {
		return nil, nil, err
	}
	if len(results) != len(ids) {
		return nil, nil, fmt.Errorf("paper batch returned %d entries for %d ids", len(results), len(ids))
	}

	papers := make([]domain.PaperRecord, 0, len(results))
	var notFound []string
	for i, r := range results {
		if r == nil {
			notFound = append(notFound, ids[i])
			continue
		}
		papers = append(papers, convertPaper(*r, ids[i]))
	}
	return papers, notFound, nil
}

// FetchAuthors resolves ids with one POST /author/batch call.
func (c *Client) FetchAuthors(ctx context.Context, ids, fields []string) ([]domain.AuthorRecord, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	var results []*AuthorResult
	if err := c.postBatch(ctx, endpointAuthorBatch, "author", ids, fields, &results); err != nil {
		return nil, nil, err
	}
	if len(results) != len(ids) {
		return nil, nil, fmt.Errorf("author batch returned %d entries for %d ids", len(results), len(ids))
	}

	authors := make([]domain.AuthorRecord, 0, len(results))
	var notFound []string
	for i, r := range results {
		if r == nil {
			notFound = append(notFound, ids[i])
			continue
		}
		authors = append(authors, convertAuthor(*r, ids[i]))
	}
	return authors, notFound, nil
}

// SearchPaperIDs returns the ids of up to limit papers matching query.
// A non-empty publicationType restricts results to that type.
func (c *Client) SearchPaperIDs(ctx context.Context, query, publicationType string, limit int) ([]string, error) {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("fields", "paperId")
	q.Set("limit", strconv.Itoa(limit))
	if publicationType != "" {
		q.Set("publicationTypes", publicationType)
	}

	var resp SearchResponse
	if err := c.getJSON(ctx, endpointPaperSearch, c.config.BaseURL+"/paper/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.PaperID != "" {
			ids = append(ids, p.PaperID)
		}
	}
	return ids, nil
}

// References returns the ids of the papers cited by paperID, following
// pagination. Unmatched references (null paperId) are skipped.
func (c *Client) References(ctx context.Context, paperID string) ([]string, error) {
	var refs []string
	offset := 0
	for {
		q := url.Values{}
		q.Set("fields", "paperId")
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(referencesPageSize))
		endpoint := fmt.Sprintf("%s/paper/%s/references?%s", c.config.BaseURL, url.PathEscape(paperID), q.Encode())

		var page ReferencesResponse
		if err := c.getJSON(ctx, endpointPaperReferences, endpoint, &page); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewNotFoundError("paper", paperID)
			}
			return nil, err
		}

		for _, entry := range page.Data {
			if id := entry.CitedPaper.PaperID; id != nil && *id != "" {
				refs = append(refs, *id)
			}
		}

		if page.Next == nil || *page.Next <= offset || len(page.Data) == 0 {
			return refs, nil
		}
		offset = *page.Next
	}
}

func (c *Client) postBatch(ctx context.Context, endpoint, entity string, ids, fields []string, out any) error {
	body, err := json.Marshal(batchRequest{IDs: ids})
	if err != nil {
		return fmt.Errorf("encoding batch request: %w", err)
	}

	q := url.Values{}
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}
	batchURL := fmt.Sprintf("%s/%s/batch?%s", c.config.BaseURL, entity, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, batchURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, endpoint, out)
}

// do executes req and decodes a successful JSON body into out.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(endpoint, err)
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordSourceRequest(metricsSource, endpoint, time.Since(start).Seconds())
	}

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		err := domain.NewNotFoundError(endpoint, req.URL.Path)
		c.recordFailure(endpoint, err)
		return err
	}

	if err := c.handleErrorResponse(resp); err != nil {
		c.recordFailure(endpoint, err)
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		c.recordFailure(endpoint, err)
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) recordFailure(endpoint string, err error) {
	if c.metrics == nil {
		return
	}

	var apiErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		c.metrics.RecordSourceRateLimited(metricsSource)
		c.metrics.RecordSourceRequestFailed(metricsSource, endpoint, "rate_limited")
	case errors.Is(err, domain.ErrNotFound):
		c.metrics.RecordSourceRequestFailed(metricsSource, endpoint, "not_found")
	case errors.As(err, &apiErr):
		c.metrics.RecordSourceRequestFailed(metricsSource, endpoint, "http_"+strconv.Itoa(apiErr.StatusCode))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.metrics.RecordSourceRequestFailed(metricsSource, endpoint, "canceled")
	default:
		c.metrics.RecordSourceRequestFailed(metricsSource, endpoint, "transport")
	}
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitError(sourceName, 0)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertPaper converts an API paper to a domain record. requestedID is
// used when the API omits the paper id.
func convertPaper(r PaperResult, requestedID string) domain.PaperRecord {
	p := domain.PaperRecord{
		ID:               r.PaperID,
		Title:            deref(r.Title),
		Abstract:         deref(r.Abstract),
		Year:             r.Year,
		Venue:            deref(r.Venue),
		URL:              deref(r.URL),
		CitationCount:    r.CitationCount,
		ExternalIDs:      r.ExternalIDs,
		PublicationTypes: r.PublicationTypes,
		FieldsOfStudy:    r.FieldsOfStudy,
	}
	if p.ID == "" {
		p.ID = requestedID
	}
	if r.Journal != nil {
		p.Journal = &domain.Journal{
			Name:   strings.TrimSpace(r.Journal.Name),
			Volume: strings.TrimSpace(r.Journal.Volume),
			Pages:  strings.TrimSpace(r.Journal.Pages),
		}
	}
	for _, a := range r.Authors {
		if a.AuthorID != nil && *a.AuthorID != "" {
			p.AuthorIDs = append(p.AuthorIDs, *a.AuthorID)
		}
	}
	return p
}

func convertAuthor(r AuthorResult, requestedID string) domain.AuthorRecord {
	a := domain.AuthorRecord{
		ID:            r.AuthorID,
		Name:          deref(r.Name),
		Affiliations:  r.Affiliations,
		Homepage:      deref(r.Homepage),
		PaperCount:    r.PaperCount,
		CitationCount: r.CitationCount,
		HIndex:        r.HIndex,
	}
	if a.ID == "" {
		a.ID = requestedID
	}
	return a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
