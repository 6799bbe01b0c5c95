package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"triage-assistant/pkg"
)

// Client searches PubMed through the NCBI Entrez E-utilities: esearch for
// relevance-ranked ids, efetch for article detail. Every request carries the
// tool and email identification parameters NCBI requires of automated
// clients; constructing a client without them fails so the omission is
// caught at startup, not per request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	tool       string
	logger     zerolog.Logger
}

// NewClient builds a PubMed client. baseURL has no trailing slash, e.g.
// https://eutils.ncbi.nlm.nih.gov/entrez/eutils.
func NewClient(baseURL, email, tool string, logger zerolog.Logger) (*Client, error) {
	if email == "" {
		return nil, fmt.Errorf("pubmed: contact email is required by the E-utilities usage policy")
	}
	if tool == "" {
		return nil, fmt.Errorf("pubmed: tool name is required by the E-utilities usage policy")
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		tool:       tool,
		logger:     logger.With().Str("component", "pubmed").Logger(),
	}, nil
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID     string         `xml:"MedlineCitation>PMID"`
	Title    string         `xml:"MedlineCitation>Article>ArticleTitle"`
	Abstract []abstractText `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	PubDate  pubDate        `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

// Search runs the keyword query and returns up to max article summaries.
// A query that matches nothing is a success with an empty result.
func (c *Client) Search(ctx context.Context, keywords []string, max int) ([]pkg.ReferenceItem, error) {
	if len(keywords) == 0 || max <= 0 {
		return nil, nil
	}
	ids, err := c.esearch(ctx, BuildTerm(keywords), max)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		c.logger.Debug().Strs("keywords", keywords).Msg("no pubmed results")
		return nil, nil
	}
	return c.efetch(ctx, ids)
}

// BuildTerm turns extracted keywords into an Entrez term. Each keyword is
// scoped to title/abstract; multiple keywords are AND-ed to keep the query
// focused on the presenting symptoms.
func BuildTerm(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%q[Title/Abstract]", k))
	}
	return strings.Join(parts, " AND ")
}

func (c *Client) esearch(ctx context.Context, term string, max int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmax":  {strconv.Itoa(max)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var parsed esearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "pubmed esearch returned unparseable JSON", Err: err}
	}
	return parsed.Result.IDList, nil
}

func (c *Client) efetch(ctx context.Context, ids []string) ([]pkg.ReferenceItem, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
	}
	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "pubmed efetch returned unparseable XML", Err: err}
	}
	items := make([]pkg.ReferenceItem, 0, len(set.Articles))
	for _, a := range set.Articles {
		if a.PMID == "" {
			continue
		}
		items = append(items, pkg.ReferenceItem{
			ID:        a.PMID,
			Title:     strings.TrimSpace(a.Title),
			Abstract:  joinAbstract(a.Abstract),
			Published: a.PubDate.String(),
		})
	}
	return items, nil
}

// get issues one E-utilities request with the identification params attached.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("tool", c.tool)
	params.Set("email", c.email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "pubmed request could not be built", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "pubmed unreachable", Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &pkg.Error{
			Kind:      pkg.ErrUpstreamUnavailable,
			Message:   fmt.Sprintf("pubmed responded %d", resp.StatusCode),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "pubmed response truncated", Retryable: true, Err: err}
	}
	return body, nil
}

// joinAbstract flattens labelled abstract segments ("BACKGROUND: ...") into
// one string.
func joinAbstract(parts []abstractText) string {
	var out []string
	for _, p := range parts {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if p.Label != "" {
			out = append(out, p.Label+": "+text)
		} else {
			out = append(out, text)
		}
	}
	return strings.Join(out, " ")
}

// String assembles "Day Month Year", falling back to the Medline free-form
// date when the structured fields are absent.
func (d pubDate) String() string {
	if d.Year == "" {
		return d.MedlineDate
	}
	date := d.Year
	if d.Month != "" {
		date = d.Month + " " + date
	}
	if d.Day != "" {
		date = d.Day + " " + date
	}
	return date
}
