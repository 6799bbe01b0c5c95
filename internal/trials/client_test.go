package trials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-assistant/pkg"
)

func studyJSON(nctID, title, status, startDate, summary string, conditions ...string) string {
	conds, _ := json.Marshal(conditions)
	return fmt.Sprintf(`{
		"protocolSection": {
			"identificationModule": {"nctId": %q, "briefTitle": %q},
			"statusModule": {"overallStatus": %q, "startDateStruct": {"date": %q}},
			"designModule": {"phases": ["PHASE2"]},
			"descriptionModule": {"briefSummary": %q},
			"conditionsModule": {"conditions": %s}
		}
	}`, nctID, title, status, startDate, summary, conds)
}

func serveStudies(t *testing.T, studies ...string) (*httptest.Server, *string) {
	t.Helper()
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("/studies", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprintf(w, `{"studies":[%s]}`, strings.Join(studies, ","))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &query
}

func TestSearchParsesStudies(t *testing.T) {
	srv, _ := serveStudies(t,
		studyJSON("NCT001", "Aspirin for chest pain", "RECRUITING", "2024-03", "A study.", "Chest Pain"),
	)
	c := NewClient(srv.URL, zerolog.Nop())

	items, err := c.Search(context.Background(), []string{"chest pain"}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, pkg.TrialItem{
		ID:         "NCT001",
		Title:      "Aspirin for chest pain",
		Status:     pkg.TrialRecruiting,
		Phase:      "PHASE2",
		Summary:    "A study.",
		Conditions: []string{"Chest Pain"},
		StartDate:  "2024-03",
		URL:        "https://clinicaltrials.gov/study/NCT001",
	}, items[0])
}

func TestSearchRequestParams(t *testing.T) {
	srv, query := serveStudies(t)
	c := NewClient(srv.URL, zerolog.Nop())

	_, err := c.Search(context.Background(), []string{"chest pain", "dyspnea"}, 5)
	require.NoError(t, err)

	q, err := url.ParseQuery(*query)
	require.NoError(t, err)
	assert.Equal(t, "chest pain dyspnea", q.Get("query.term"))
	// Overfetch so status ranking has a pool to pick the final cut from.
	assert.Equal(t, "15", q.Get("pageSize"))
}

func TestSearchRankingAndTruncation(t *testing.T) {
	srv, _ := serveStudies(t,
		studyJSON("NCT-COMPLETED", "done", "COMPLETED", "2025-01-01", ""),
		studyJSON("NCT-OLD-RECRUITING", "old", "RECRUITING", "2019-05", ""),
		studyJSON("NCT-UNKNOWN", "odd", "SUSPENDED", "2025-01-01", ""),
		studyJSON("NCT-NEW-RECRUITING", "new", "RECRUITING", "2024", ""),
		studyJSON("NCT-ACTIVE", "act", "ACTIVE_NOT_RECRUITING", "2023-02-02", ""),
		studyJSON("NCT-NODATE-RECRUITING", "nodate", "RECRUITING", "", ""),
	)
	c := NewClient(srv.URL, zerolog.Nop())

	items, err := c.Search(context.Background(), []string{"fever"}, 4)
	require.NoError(t, err)
	require.Len(t, items, 4)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	// Recruiting first (newer start date first, dateless last), then active.
	// Completed and unknown statuses fall off the truncated tail.
	assert.Equal(t, []string{"NCT-NEW-RECRUITING", "NCT-OLD-RECRUITING", "NCT-NODATE-RECRUITING", "NCT-ACTIVE"}, ids)
}

func TestSearchSummaryCapped(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv, _ := serveStudies(t, studyJSON("NCT9", "t", "RECRUITING", "2024", long))
	c := NewClient(srv.URL, zerolog.Nop())

	items, err := c.Search(context.Background(), []string{"fever"}, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Len(t, items[0].Summary, 300)
	assert.True(t, strings.HasSuffix(items[0].Summary, "..."))
}

func TestSearchSummaryCapKeepsValidUTF8(t *testing.T) {
	// β occupies bytes 296-297, straddling the byte-level cut point.
	long := strings.Repeat("a", 296) + "β" + strings.Repeat("x", 200)
	srv, _ := serveStudies(t, studyJSON("NCT10", "t", "RECRUITING", "2024", long))
	c := NewClient(srv.URL, zerolog.Nop())

	items, err := c.Search(context.Background(), []string{"fever"}, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, utf8.ValidString(items[0].Summary))
	assert.True(t, strings.HasSuffix(items[0].Summary, "..."))
	assert.LessOrEqual(t, len(items[0].Summary), 300)
}

func TestTruncateSummary(t *testing.T) {
	assert.Equal(t, "short", truncateSummary("short", 300))

	capped := truncateSummary(strings.Repeat("a", 296)+"β≥é", 300)
	assert.True(t, utf8.ValidString(capped))
	assert.Equal(t, strings.Repeat("a", 296)+"...", capped)

	exact := strings.Repeat("a", 297) + "β" // 299 bytes, under the cap
	assert.Equal(t, exact, truncateSummary(exact, 300))
}

func TestSearchSkipsStudiesWithoutID(t *testing.T) {
	srv, _ := serveStudies(t, studyJSON("", "anonymous", "RECRUITING", "2024", ""))
	c := NewClient(srv.URL, zerolog.Nop())

	items, err := c.Search(context.Background(), []string{"fever"}, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchEmptyKeywords(t *testing.T) {
	c := NewClient("http://localhost:1", zerolog.Nop())
	items, err := c.Search(context.Background(), nil, 5)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchRegistryDown(t *testing.T) {
	srv, _ := serveStudies(t)
	srv.Close()
	c := NewClient(srv.URL, zerolog.Nop())

	_, err := c.Search(context.Background(), []string{"fever"}, 5)
	require.Error(t, err)
	assert.Equal(t, pkg.ErrUpstreamUnavailable, pkg.KindOf(err))
	assert.True(t, pkg.IsRetryable(err))
}

func TestSearchRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/studies", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, zerolog.Nop())

	_, err := c.Search(context.Background(), []string{"fever"}, 5)
	require.Error(t, err)
	assert.True(t, pkg.IsRetryable(err))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, pkg.TrialRecruiting, mapStatus("RECRUITING"))
	assert.Equal(t, pkg.TrialActive, mapStatus("ACTIVE_NOT_RECRUITING"))
	assert.Equal(t, pkg.TrialActive, mapStatus("ENROLLING_BY_INVITATION"))
	assert.Equal(t, pkg.TrialCompleted, mapStatus("completed"))
	assert.Equal(t, pkg.TrialOther, mapStatus("WITHDRAWN"))
}
