// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/supplement-engine/internal/httputil"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue,url,publicationTypes"

// Unauthenticated clients share a pool; keyed clients get 1 request per second.
const semanticRate = 1

// SemanticScholar queries the Semantic Scholar Graph API, restricted to
// medicine.
type SemanticScholar struct {
	client    *http.Client
	apiKey    string
	userAgent string
	limiter   *rate.Limiter
}

// NewSemanticScholar returns a Semantic Scholar source configured from cfg.
func NewSemanticScholar(client *http.Client, cfg types.SourceConfig) *SemanticScholar {
	return &SemanticScholar{
		client:    client,
		apiKey:    cfg.SemanticScholarKey,
		userAgent: cfg.UserAgent,
		limiter:   newLimiter(cfg.RequestsPerSecond, semanticRate),
	}
}

// Name returns the backend identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Search queries Semantic Scholar for papers matching term. Untitled papers
// are skipped. Papers indexed by PubMed use the PMID as
// their ID so they line up with PubMed results.
func (s *SemanticScholar) Search(ctx context.Context, term string, maxResults int) ([]types.StudyRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	limit := capResults(maxResults)
	if limit > 100 {
		limit = 100
	}
	params := url.Values{
		"query":           {term},
		"limit":           {strconv.Itoa(limit)},
		"fields":          {semanticFields},
		"fieldsOfStudy":   {"Medicine"},
		"publicationType": {"ClinicalTrial,MetaAnalysis,Review,JournalArticle,Study"},
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 3)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	var studies []types.StudyRecord
	for _, paper := range sr.Data {
		rec := paper.toStudy()
		if rec.ID == "" || rec.Title == "" {
			continue
		}
		studies = append(studies, rec)
	}
	if len(studies) == 0 {
		return nil, fmt.Errorf("semantic scholar %q: %w", term, ErrNoneFound)
	}
	return studies, nil
}

func (p semanticPaper) toStudy() types.StudyRecord {
	rec := types.StudyRecord{
		Title:    strings.TrimSpace(p.Title),
		Abstract: strings.TrimSpace(p.Abstract),
		Year:     p.Year,
		Journal:  p.Venue,
		Source:   "semantic_scholar",
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			rec.Authors = append(rec.Authors, a.Name)
		}
	}

	switch {
	case p.ExternalIDs.PubMed != "":
		rec.ID = p.ExternalIDs.PubMed
		rec.URL = pubmedArticleURL + p.ExternalIDs.PubMed + "/"
	case p.ExternalIDs.DOI != "":
		rec.ID = p.ExternalIDs.DOI
		rec.URL = "https://doi.org/" + p.ExternalIDs.DOI
	default:
		rec.ID = p.PaperID
		rec.URL = p.URL
	}
	return rec
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Abstract    string              `json:"abstract"`
	Year        int                 `json:"year"`
	Venue       string              `json:"venue"`
	URL         string              `json:"url"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI    string `json:"DOI"`
	PubMed string `json:"PubMed"`
}
