package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func intp(n int) *int { return &n }

func testServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	nodes := []catalog.SourceNode{
		{ID: "ls", Title: "Likkutei Sichos"},
		{ID: "ls-28", ParentID: "ls", Title: "לקוטי שיחות חלק כח", VolumeNumber: intp(28)},
		{ID: "ls-28-nasso-1", ParentID: "ls-28", Title: "נשא א", PageNumber: intp(33), PageCount: intp(7), Parsha: "נשא"},
		{ID: "ls-28-nasso-2", ParentID: "ls-28", Title: "נשא ב", PageNumber: intp(40), PageCount: intp(6), Parsha: "נשא"},
		{ID: "tanya", Title: "Likkutei Amarim"},
		{ID: "tanya-32", ParentID: "tanya", Title: "פרק לב", PageNumber: intp(32), PageCount: intp(1)},
	}
	for _, n := range nodes {
		if err := st.Upsert(ctx, n); err != nil {
			t.Fatalf("seeding %s: %v", n.ID, err)
		}
	}

	return NewWithStore(Config{}, st)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestHandleParse(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	rec, env := postJSON(t, h, "/v1/parse", `{"text":"Likkutei Sichos, vol. 28, p. 33"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result ParseResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.BookName != "Likkutei Sichos" {
		t.Errorf("BookName = %q, want %q", result.BookName, "Likkutei Sichos")
	}
	if result.Locator == nil {
		t.Fatal("no locator in response")
	}
	if result.Locator.Volume == nil || *result.Locator.Volume != 28 {
		t.Errorf("Volume = %v, want 28", result.Locator.Volume)
	}
	if result.Locator.Page == nil || *result.Locator.Page != 33 {
		t.Errorf("Page = %v, want 33", result.Locator.Page)
	}
}

func TestHandleParseRejectsEmptyText(t *testing.T) {
	s := testServer(t)
	rec, env := postJSON(t, s.Handler(), "/v1/parse", `{"text":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "INVALID_REQUEST" {
		t.Errorf("error = %+v, want INVALID_REQUEST", env.Error)
	}
}

func TestHandleResolve(t *testing.T) {
	s := testServer(t)
	rec, env := postJSON(t, s.Handler(), "/v1/resolve",
		`{"root_id":"ls","reference":"vol. 28, p. 35"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result ResolveResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Status != "resolved" {
		t.Fatalf("status = %q, want resolved", result.Status)
	}
	if result.Leaf == nil || result.Leaf.ID != "ls-28-nasso-1" {
		t.Errorf("leaf = %+v, want ls-28-nasso-1", result.Leaf)
	}
	if !result.PageInRange {
		t.Error("page 35 should be in range of a 7-page leaf starting at 33")
	}
}

func TestHandleResolveUnknownVolume(t *testing.T) {
	s := testServer(t)
	_, env := postJSON(t, s.Handler(), "/v1/resolve",
		`{"root_id":"ls","reference":"vol. 99, p. 35"}`)

	var result ResolveResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Status != "volume_not_resolved" {
		t.Errorf("status = %q, want volume_not_resolved", result.Status)
	}
	if len(result.CandidateVolumes) == 0 {
		t.Error("expected candidate volumes for an unresolved volume")
	}
}

func TestHandleFormat(t *testing.T) {
	s := testServer(t)
	rec, env := postJSON(t, s.Handler(), "/v1/format",
		`{"root_id":"ls","reference":"vol. 28, p. 33"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result FormatResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Citation == nil {
		t.Fatalf("no citation in response, status %q", result.Status)
	}
	want := "Likkutei Sichos, vol. 28, pp. 33-39 (Nasso 1)"
	if result.Citation.Full != want {
		t.Errorf("citation = %q, want %q", result.Citation.Full, want)
	}
}

func TestHandleMatch(t *testing.T) {
	s := testServer(t)
	_, env := postJSON(t, s.Handler(), "/v1/match", `{"text":"Tanya ch. 32"}`)

	var result MatchResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Match == nil {
		t.Fatal("expected a match for Tanya ch. 32")
	}
	if result.Match.Source.ID != "tanya" {
		t.Errorf("matched %q, want tanya", result.Match.Source.ID)
	}
}

func TestHandleMatchBelowThreshold(t *testing.T) {
	s := testServer(t)
	_, env := postJSON(t, s.Handler(), "/v1/match", `{"text":"Unrelated Work p. 5"}`)

	var result MatchResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Match != nil {
		t.Errorf("match = %+v, want none", result.Match)
	}
}

func TestHandleHeal(t *testing.T) {
	s := testServer(t)
	rec, env := postJSON(t, s.Handler(), "/v1/heal",
		`{"citations":["Likkutei Sichos, vol. 28, p. 33","no such book at all"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result HealResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if result.Processed != 2 {
		t.Errorf("processed = %d, want 2", result.Processed)
	}
	if result.Matched != 1 {
		t.Errorf("matched = %d, want 1", result.Matched)
	}

	healed := result.Results[0]
	if !healed.Matched || healed.SourceID != "ls" {
		t.Fatalf("first citation: %+v, want match on ls", healed)
	}
	if healed.Citation == nil {
		t.Fatal("matched citation missing formatted output")
	}
	if healed.Citation.Full != "Likkutei Sichos, vol. 28, pp. 33-39 (Nasso 1)" {
		t.Errorf("healed citation = %q", healed.Citation.Full)
	}
	if result.Results[1].Matched {
		t.Error("gibberish citation should not match")
	}
}

func TestHandleImport(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	s := NewWithStore(Config{}, st)

	body := `<?xml version="1.0" encoding="UTF-8"?>
<catalog>
  <source id="tanya" title="Likkutei Amarim">
    <item id="tanya-32" title="פרק לב" page="32"/>
  </source>
</catalog>`
	req := httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	var stats struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if stats.Imported != 2 {
		t.Errorf("imported = %d, want 2", stats.Imported)
	}
}

func TestHandleSources(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/sources", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if env.Meta == nil || env.Meta.Total != 2 {
		t.Errorf("meta = %+v, want total 2", env.Meta)
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	var health HealthInfo
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
	if health.Records != 6 {
		t.Errorf("records = %d, want 6", health.Records)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/parse", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	s := testServer(t)
	rec, env := postJSON(t, s.Handler(), "/v1/resolve", `{"root_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "INVALID_REQUEST" {
		t.Errorf("error = %+v, want INVALID_REQUEST", env.Error)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := testServer(t)
	s.cfg.RateLimitRequests = 60
	s.cfg.RateLimitBurst = 2
	h := s.Handler()

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.9:4321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}
