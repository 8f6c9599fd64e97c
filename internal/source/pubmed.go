// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/supplement-engine/internal/httputil"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// eutilsBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// pubmedArticleURL is the landing page prefix for a PMID.
const pubmedArticleURL = "https://pubmed.ncbi.nlm.nih.gov/"

// NCBI allows 3 requests per second without an API key and 10 with one.
const (
	pubmedRate        = 3
	pubmedRateWithKey = 10
)

// PubMed searches PubMed through the E-utilities esearch and efetch endpoints.
type PubMed struct {
	client    *http.Client
	apiKey    string
	email     string
	userAgent string
	limiter   *rate.Limiter
}

// NewPubMed returns a PubMed source configured from cfg.
func NewPubMed(client *http.Client, cfg types.SourceConfig) *PubMed {
	fallback := float64(pubmedRate)
	if cfg.APIKey != "" {
		fallback = pubmedRateWithKey
	}
	return &PubMed{
		client:    client,
		apiKey:    cfg.APIKey,
		email:     cfg.Email,
		userAgent: cfg.UserAgent,
		limiter:   newLimiter(cfg.RequestsPerSecond, fallback),
	}
}

// Name returns the backend identifier.
func (p *PubMed) Name() string { return "pubmed" }

// Search finds PMIDs for term ordered by relevance, then fetches their
// records. Results keep the relevance order of the search.
func (p *PubMed) Search(ctx context.Context, term string, maxResults int) ([]types.StudyRecord, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}

	ids, err := p.searchIDs(ctx, term, capResults(maxResults))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("pubmed %q: %w", term, ErrNoneFound)
	}

	studies, err := p.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(studies) == 0 {
		return nil, fmt.Errorf("pubmed %q: %w", term, ErrNoneFound)
	}
	return studies, nil
}

// searchIDs calls esearch and returns the matching PMIDs.
func (p *PubMed) searchIDs(ctx context.Context, term string, maxResults int) ([]string, error) {
	params := p.params()
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")

	resp, err := p.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing PubMed esearch response: %w", err)
	}
	if sr.Result.Error != "" {
		return nil, fmt.Errorf("PubMed esearch error: %s", sr.Result.Error)
	}
	return sr.Result.IDList, nil
}

// fetch calls efetch for ids and converts the articles to StudyRecords in
// the order of ids. Articles without a title are skipped.
func (p *PubMed) fetch(ctx context.Context, ids []string) ([]types.StudyRecord, error) {
	params := p.params()
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	resp, err := p.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PubMed efetch response: %w", err)
	}

	byID := make(map[string]types.StudyRecord, len(set.Articles))
	for _, a := range set.Articles {
		rec := a.toStudy()
		if rec.ID == "" || rec.Title == "" {
			continue
		}
		byID[rec.ID] = rec
	}

	studies := make([]types.StudyRecord, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			studies = append(studies, rec)
			delete(byID, id)
		}
	}
	return studies, nil
}

func (p *PubMed) params() url.Values {
	params := url.Values{"db": {"pubmed"}, "tool": {"supplement-engine"}}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}
	if p.email != "" {
		params.Set("email", p.email)
	}
	return params
}

func (p *PubMed) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 3)
	if err != nil {
		return nil, fmt.Errorf("PubMed API request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// E-utilities JSON and XML structures.
type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    markupText `xml:"ArticleTitle"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Journal struct {
				Title string `xml:"Title"`
				Issue struct {
					PubDate struct {
						Year        string `xml:"Year"`
						MedlineDate string `xml:"MedlineDate"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			Authors []pubmedAuthor `xml:"AuthorList>Author"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  markupText
}

// UnmarshalXML keeps the Label attribute and the flattened text content.
func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	return a.Text.UnmarshalXML(d, start)
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

// markupText collects all character data inside an element, flattening
// inline markup such as <i>, <sup> and <b> that PubMed embeds in titles and
// abstracts.
type markupText string

// UnmarshalXML implements xml.Unmarshaler.
func (t *markupText) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(v)
		}
	}
	*t = markupText(strings.Join(strings.Fields(b.String()), " "))
	return nil
}

func (a pubmedArticle) toStudy() types.StudyRecord {
	c := a.Citation
	rec := types.StudyRecord{
		ID:      strings.TrimSpace(c.PMID),
		Title:   string(c.Article.Title),
		Journal: strings.TrimSpace(c.Article.Journal.Title),
		Source:  "pubmed",
	}
	if rec.ID != "" {
		rec.URL = pubmedArticleURL + rec.ID + "/"
	}

	var parts []string
	for _, t := range c.Article.Abstract.Texts {
		text := string(t.Text)
		if text == "" {
			continue
		}
		if t.Label != "" {
			text = t.Label + ": " + text
		}
		parts = append(parts, text)
	}
	rec.Abstract = strings.Join(parts, " ")

	for _, au := range c.Article.Authors {
		switch {
		case au.CollectiveName != "":
			rec.Authors = append(rec.Authors, au.CollectiveName)
		case au.LastName != "":
			name := au.LastName
			if au.Initials != "" {
				name += " " + au.Initials
			}
			rec.Authors = append(rec.Authors, name)
		}
	}

	rec.Year = parseYear(c.Article.Journal.Issue.PubDate.Year)
	if rec.Year == 0 {
		rec.Year = parseYear(c.Article.Journal.Issue.PubDate.MedlineDate)
	}
	return rec
}

// parseYear reads a leading four-digit year ("2019", "2019 Jan-Feb").
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}
