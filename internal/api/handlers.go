package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/otzaria/mekor/core/catalog"
	"github.com/otzaria/mekor/core/cite"
	"github.com/otzaria/mekor/core/errors"
	"github.com/otzaria/mekor/core/reference"
	"github.com/otzaria/mekor/core/resolve"
	"github.com/otzaria/mekor/core/score"
	"github.com/otzaria/mekor/internal/logging"
)

// Version is the API version reported by the root and health endpoints.
const Version = "0.1.0"

// maxImportBytes caps catalog import request bodies.
const maxImportBytes = 32 << 20

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Records int    `json:"records"`
}

// ParseRequest is the request body for /v1/parse.
type ParseRequest struct {
	Text string `json:"text"`
}

// LocatorInfo is the JSON shape of a parsed locator.
type LocatorInfo struct {
	Volume  *int   `json:"volume,omitempty"`
	Chapter *int   `json:"chapter,omitempty"`
	Page    *int   `json:"page,omitempty"`
	PageEnd *int   `json:"page_end,omitempty"`
	Folio   string `json:"folio,omitempty"`
}

// ParseResult is the response body for /v1/parse.
type ParseResult struct {
	BookName     string       `json:"book_name"`
	ReferenceRaw string       `json:"reference_raw,omitempty"`
	Locator      *LocatorInfo `json:"locator,omitempty"`
}

// ResolveRequest is the request body for /v1/resolve and /v1/format.
type ResolveRequest struct {
	RootID    string `json:"root_id"`
	Reference string `json:"reference"`
}

// ResolveResult is the response body for /v1/resolve.
type ResolveResult struct {
	Status           string               `json:"status"`
	Volume           *catalog.SourceNode  `json:"volume,omitempty"`
	Leaf             *catalog.SourceNode  `json:"leaf,omitempty"`
	RequestedPage    *int                 `json:"requested_page,omitempty"`
	PageInRange      bool                 `json:"page_in_range"`
	CandidateVolumes []catalog.SourceNode `json:"candidate_volumes,omitempty"`
}

// FormatResult is the response body for /v1/format.
type FormatResult struct {
	Status   string                  `json:"status"`
	Citation *cite.FormattedCitation `json:"citation,omitempty"`
}

// MatchRequest is the request body for /v1/match.
type MatchRequest struct {
	Text          string `json:"text"`
	MinConfidence int    `json:"min_confidence,omitempty"`
}

// MatchResult is the response body for /v1/match.
type MatchResult struct {
	Match *score.CitationMatch `json:"match"`
}

// HealRequest is the request body for /v1/heal.
type HealRequest struct {
	Citations     []string `json:"citations"`
	MinConfidence int      `json:"min_confidence,omitempty"`
}

// HealedCitation is one entry in a /v1/heal response.
type HealedCitation struct {
	Text       string                  `json:"text"`
	Matched    bool                    `json:"matched"`
	SourceID   string                  `json:"source_id,omitempty"`
	Confidence int                     `json:"confidence,omitempty"`
	MatchType  string                  `json:"match_type,omitempty"`
	Status     string                  `json:"status,omitempty"`
	Citation   *cite.FormattedCitation `json:"citation,omitempty"`
}

// HealResult is the response body for /v1/heal.
type HealResult struct {
	Processed int              `json:"processed"`
	Matched   int              `json:"matched"`
	Results   []HealedCitation `json:"results"`
}

var startTime = time.Now()

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Mekor Citation API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"POST /v1/parse",
			"POST /v1/resolve",
			"POST /v1/format",
			"POST /v1/match",
			"POST /v1/heal",
			"POST /v1/import",
			"GET /v1/sources",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	records, err := s.store.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		return
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
		Records: records,
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "text is required")
		return
	}

	respond(w, http.StatusOK, parseText(req.Text))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, ok := s.resolveRequest(w, r, req)
	if !ok {
		return
	}
	respond(w, http.StatusOK, resolveResult(result))
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, ok := s.resolveRequest(w, r, req)
	if !ok {
		return
	}
	if result.Status != resolve.StatusResolved || result.Leaf == nil {
		respond(w, http.StatusOK, FormatResult{Status: result.Status.String()})
		return
	}

	root, err := s.resolver.ResolveByID(r.Context(), req.RootID)
	if err != nil && !errors.IsNotFound(err) {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		return
	}

	citation := s.formatter.Format(cite.Input{
		RootID: req.RootID,
		Root:   root,
		Volume: result.Volume,
		Leaf:   *result.Leaf,
	})
	respond(w, http.StatusOK, FormatResult{
		Status:   result.Status.String(),
		Citation: &citation,
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "text is required")
		return
	}

	candidates, err := s.rootCandidates(r)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		return
	}

	match := score.FuzzyMatchCitation(req.Text, candidates, req.MinConfidence)
	respond(w, http.StatusOK, MatchResult{Match: match})
}

func (s *Server) handleHeal(w http.ResponseWriter, r *http.Request) {
	var req HealRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Citations) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "citations is required")
		return
	}

	candidates, err := s.rootCandidates(r)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		return
	}

	result := HealResult{Results: make([]HealedCitation, 0, len(req.Citations))}
	for i, text := range req.Citations {
		s.hub.BroadcastProgress("heal", "matching", text, (i*100)/len(req.Citations))

		healed := HealedCitation{Text: text}
		if match := score.FuzzyMatchCitation(text, candidates, req.MinConfidence); match != nil {
			healed.Matched = true
			healed.SourceID = match.Source.ID
			healed.Confidence = match.Confidence
			healed.MatchType = string(match.MatchType)
			result.Matched++

			s.healResolve(r, match.Source.ID, text, &healed)
		}
		result.Results = append(result.Results, healed)
		result.Processed++
	}

	logging.HealEvent("heal_complete", result.Processed, result.Matched)
	s.hub.BroadcastComplete("heal", "link healing finished", map[string]interface{}{
		"processed": result.Processed,
		"matched":   result.Matched,
	})
	respond(w, http.StatusOK, result)
}

// healResolve fills in the resolved citation for a matched heal entry.
// Resolution failures degrade to a match-only entry rather than failing the
// whole batch.
func (s *Server) healResolve(r *http.Request, rootID, text string, healed *HealedCitation) {
	parsed := reference.Parse(text)
	if !parsed.HasReference() {
		return
	}
	loc, err := reference.ParseLocator(parsed.ReferenceRaw)
	if err != nil {
		return
	}

	result, err := s.resolver.Resolve(r.Context(), rootID, loc)
	if err != nil {
		logging.WarnContext(r.Context(), "heal resolution failed", "root_id", rootID, "error", err)
		return
	}
	healed.Status = result.Status.String()
	logging.Resolution(rootID, healed.Status, healed.Confidence)
	if result.Status != resolve.StatusResolved || result.Leaf == nil {
		return
	}

	root, err := s.resolver.ResolveByID(r.Context(), rootID)
	if err != nil && !errors.IsNotFound(err) {
		return
	}
	citation := s.formatter.Format(cite.Input{
		RootID: rootID,
		Root:   root,
		Volume: result.Volume,
		Leaf:   *result.Leaf,
	})
	healed.Citation = &citation
}

// handleImport accepts a catalog XML document as the request body and
// imports it into the store.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	s.hub.BroadcastProgress("import", "parsing", "importing catalog", 0)
	stats, err := s.importer.ImportCatalog(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		if errors.IsStoreUnavailable(err) {
			respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		} else {
			respondError(w, http.StatusBadRequest, "INVALID_CATALOG", "Catalog document could not be imported")
		}
		return
	}

	s.hub.BroadcastComplete("import", "catalog import finished", map[string]interface{}{
		"imported": stats.Imported,
		"skipped":  stats.Skipped,
	})
	respond(w, http.StatusOK, stats)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	roots, err := s.store.ListRoots(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		return
	}

	response := APIResponse{
		Success: true,
		Data:    roots,
		Meta: &APIMeta{
			Total:     len(roots),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// resolveRequest validates a resolve/format request and runs the resolver.
// On failure it writes the error response and returns ok=false.
func (s *Server) resolveRequest(w http.ResponseWriter, r *http.Request, req ResolveRequest) (*resolve.Result, bool) {
	if req.RootID == "" || req.Reference == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "root_id and reference are required")
		return nil, false
	}

	loc, err := reference.ParseLocator(req.Reference)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REFERENCE", "reference could not be parsed")
		return nil, false
	}

	result, err := s.resolver.Resolve(r.Context(), req.RootID, loc)
	if err != nil {
		if errors.IsStoreUnavailable(err) {
			respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Catalog store is not reachable")
		} else {
			respondError(w, http.StatusInternalServerError, "INTERNAL", "Resolution failed")
		}
		return nil, false
	}
	return result, true
}

// rootCandidates builds scorer candidates for the catalog's root sources,
// including reference-bearing candidates derived from their volumes and
// leaves so numeric confirmation can lift a variant-spelled title over the
// threshold.
func (s *Server) rootCandidates(r *http.Request) ([]score.Candidate, error) {
	return s.store.MatchCandidates(r.Context())
}

func parseText(text string) ParseResult {
	parsed := reference.Parse(text)
	result := ParseResult{
		BookName:     parsed.BookName,
		ReferenceRaw: parsed.ReferenceRaw,
	}
	if parsed.HasReference() {
		if loc, err := reference.ParseLocator(parsed.ReferenceRaw); err == nil {
			result.Locator = &LocatorInfo{
				Volume:  loc.Volume,
				Chapter: loc.Chapter,
				Page:    loc.Page,
				PageEnd: loc.PageEnd,
				Folio:   loc.Folio,
			}
		}
	}
	return result
}

func resolveResult(result *resolve.Result) ResolveResult {
	return ResolveResult{
		Status:           result.Status.String(),
		Volume:           result.Volume,
		Leaf:             result.Leaf,
		RequestedPage:    result.RequestedPage,
		PageInRange:      result.PageInRange,
		CandidateVolumes: result.CandidateVolumes,
	}
}

// decodeJSON parses a POST body into dst, writing the error response itself
// when the request is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
