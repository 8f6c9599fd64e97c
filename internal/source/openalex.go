// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/supplement-engine/internal/httputil"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// openAlexRate stays under the 10 requests per second polite-pool limit.
const openAlexRate = 5

// OpenAlex queries the OpenAlex Works API for articles with abstracts.
type OpenAlex struct {
	client    *http.Client
	email     string
	userAgent string
	limiter   *rate.Limiter
}

// NewOpenAlex returns an OpenAlex source configured from cfg. cfg.Email is
// sent as the mailto parameter for polite pool access.
func NewOpenAlex(client *http.Client, cfg types.SourceConfig) *OpenAlex {
	return &OpenAlex{
		client:    client,
		email:     cfg.Email,
		userAgent: cfg.UserAgent,
		limiter:   newLimiter(cfg.RequestsPerSecond, openAlexRate),
	}
}

// Name returns the backend identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Search queries OpenAlex for works matching term. Works without a title
// are skipped.
func (o *OpenAlex) Search(ctx context.Context, term string, maxResults int) ([]types.StudyRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	perPage := capResults(maxResults)
	if perPage > 200 {
		perPage = 200
	}

	params := url.Values{
		"search":   {term},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {"1"},
		"filter":   {"has_abstract:true,type:article"},
	}
	if o.email != "" {
		params.Set("mailto", o.email)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, o.client, req, 3)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var studies []types.StudyRecord
	for _, work := range oar.Results {
		rec := work.toStudy()
		if rec.ID == "" || rec.Title == "" {
			continue
		}
		studies = append(studies, rec)
	}
	if len(studies) == 0 {
		return nil, fmt.Errorf("openalex %q: %w", term, ErrNoneFound)
	}
	return studies, nil
}

func (w openAlexWork) toStudy() types.StudyRecord {
	rec := types.StudyRecord{
		ID:       strings.TrimPrefix(w.ID, "https://openalex.org/"),
		Title:    strings.TrimSpace(w.Title),
		Abstract: reconstructAbstract(w.AbstractInvertedIndex),
		Year:     w.PublicationYear,
		Source:   "openalex",
	}
	for _, authorship := range w.Authorships {
		if authorship.Author.DisplayName != "" {
			rec.Authors = append(rec.Authors, authorship.Author.DisplayName)
		}
	}
	if w.PrimaryLocation.Source != nil {
		rec.Journal = w.PrimaryLocation.Source.DisplayName
	}
	switch {
	case w.DOI != "":
		rec.URL = w.DOI
	case w.ID != "":
		rec.URL = w.ID
	}
	return rec
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	Source *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}
