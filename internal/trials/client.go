package trials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"triage-assistant/pkg"
)

// summaryLimit caps the brief summary carried into the assessment record.
const summaryLimit = 300

// overfetchFactor controls how many studies to request before status
// filtering; recruiting/active trials are preferred over completed ones, so
// the raw page must be larger than the final cut.
const overfetchFactor = 3

// Client queries the ClinicalTrials.gov v2 studies API by condition
// keywords.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// NewClient builds a trials client. baseURL has no trailing slash, e.g.
// https://clinicaltrials.gov/api/v2.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With().Str("component", "trials").Logger(),
	}
}

type studiesResponse struct {
	Studies []study `json:"studies"`
}

type study struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus        string     `json:"overallStatus"`
			StartDateStruct      dateStruct `json:"startDateStruct"`
			CompletionDateStruct dateStruct `json:"completionDateStruct"`
		} `json:"statusModule"`
		DesignModule struct {
			Phases []string `json:"phases"`
		} `json:"designModule"`
		DescriptionModule struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
	} `json:"protocolSection"`
}

type dateStruct struct {
	Date string `json:"date"`
}

// Search returns up to max trials for the keywords, recruiting and active
// studies first. A query matching nothing is a success with an empty result.
func (c *Client) Search(ctx context.Context, keywords []string, max int) ([]pkg.TrialItem, error) {
	if len(keywords) == 0 || max <= 0 {
		return nil, nil
	}
	params := url.Values{
		"query.term": {strings.Join(keywords, " ")},
		"pageSize":   {strconv.Itoa(max * overfetchFactor)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/studies?"+params.Encode(), nil)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "trials request could not be built", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "trials registry unreachable", Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &pkg.Error{
			Kind:      pkg.ErrUpstreamUnavailable,
			Message:   fmt.Sprintf("trials registry responded %d", resp.StatusCode),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "trials response truncated", Retryable: true, Err: err}
	}
	var parsed studiesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrUpstreamUnavailable, Message: "trials registry returned unparseable JSON", Err: err}
	}
	items := make([]pkg.TrialItem, 0, len(parsed.Studies))
	for _, s := range parsed.Studies {
		item := formatTrial(s)
		if item.ID == "" {
			continue
		}
		items = append(items, item)
	}
	RankTrials(items)
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

// formatTrial flattens the v2 protocolSection modules into a TrialItem.
func formatTrial(s study) pkg.TrialItem {
	p := s.ProtocolSection
	phase := ""
	if len(p.DesignModule.Phases) > 0 {
		phase = p.DesignModule.Phases[0]
	}
	summary := truncateSummary(p.DescriptionModule.BriefSummary, summaryLimit)
	nctID := p.IdentificationModule.NCTID
	return pkg.TrialItem{
		ID:             nctID,
		Title:          p.IdentificationModule.BriefTitle,
		Status:         mapStatus(p.StatusModule.OverallStatus),
		Phase:          phase,
		Summary:        summary,
		Conditions:     p.ConditionsModule.Conditions,
		StartDate:      p.StatusModule.StartDateStruct.Date,
		CompletionDate: p.StatusModule.CompletionDateStruct.Date,
		URL:            "https://clinicaltrials.gov/study/" + nctID,
	}
}

// truncateSummary caps s at limit bytes without splitting a multi-byte rune;
// registry summaries carry symbols like β and ≥, and a half rune would be
// rejected by Postgres at insert time.
func truncateSummary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func mapStatus(overall string) pkg.TrialStatus {
	switch strings.ToUpper(overall) {
	case "RECRUITING":
		return pkg.TrialRecruiting
	case "ACTIVE_NOT_RECRUITING", "ENROLLING_BY_INVITATION":
		return pkg.TrialActive
	case "COMPLETED":
		return pkg.TrialCompleted
	default:
		return pkg.TrialOther
	}
}

var statusRank = map[pkg.TrialStatus]int{
	pkg.TrialRecruiting: 0,
	pkg.TrialActive:     1,
	pkg.TrialCompleted:  2,
	pkg.TrialOther:      3,
}

// RankTrials orders trials by status preference (recruiting, active,
// completed, other), breaking ties with the more recent start date.
// Unparseable start dates sort last within a status.
func RankTrials(items []pkg.TrialItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := statusRank[items[i].Status], statusRank[items[j].Status]
		if ri != rj {
			return ri < rj
		}
		ti, okI := parseTrialDate(items[i].StartDate)
		tj, okJ := parseTrialDate(items[j].StartDate)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
}

// parseTrialDate accepts the registry's partial dates: YYYY, YYYY-MM and
// YYYY-MM-DD.
func parseTrialDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
