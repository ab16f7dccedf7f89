package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	answeruc "github.com/kailas-cloud/ragdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// errorCode is the machine-readable error identifier in error responses.
type errorCode string

const (
	codeBadRequest            errorCode = "bad_request"
	codeValidationFailed      errorCode = "validation_failed"
	codeInvalidArgument       errorCode = "invalid_argument"
	codeEmptyDocument         errorCode = "empty_document"
	codeNotFound              errorCode = "not_found"
	codeDocumentNotFound      errorCode = "document_not_found"
	codeUnsupportedFormat     errorCode = "unsupported_format"
	codeIndexVersionMismatch  errorCode = "index_version_mismatch"
	codeEmbeddingUnavailable  errorCode = "embedding_unavailable"
	codeGenerationUnavailable errorCode = "generation_unavailable"
	codeUnauthorized          errorCode = "unauthorized"
	codeInternalError         errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the engine over a chi router.
type Server struct {
	ingest        *ingestuc.Service
	search        *searchuc.Service
	answers       *answeruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler

	defaultTopK int
	maxTopK     int
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	search *searchuc.Service,
	answers *answeruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:  ingest,
		search:  search,
		answers: answers,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		versionMismatchHandler,
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, codeEmptyDocument),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeInvalidArgument),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusConflict, codeUnsupportedFormat),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusServiceUnavailable, codeGenerationUnavailable),
	}
	return s
}

// WithSearchLimits sets the deployment default and cap for top_k. Zero
// leaves the request-level defaults in charge.
func (s *Server) WithSearchLimits(defaultTopK, maxTopK int) *Server {
	s.defaultTopK = defaultTopK
	s.maxTopK = maxTopK
	return s
}

// Register mounts all routes on the router. Middleware belongs to the
// caller, so tests can mount a bare router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIngest)
		r.Get("/documents/{documentID}", s.handleGetDocument)
		r.Delete("/documents/{documentID}", s.handleDeleteDocument)
		r.Post("/search", s.handleSearch)
		r.Post("/answers", s.handleAnswer)
	})
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type sourceDTO struct {
	Filename string `json:"filename,omitempty"`
	Format   string `json:"format,omitempty"`
}

type ingestRequest struct {
	ID       string     `json:"id"`
	Text     string     `json:"text"`
	Language string     `json:"language,omitempty"`
	Source   *sourceDTO `json:"source,omitempty"`
}

type ingestResponse struct {
	DocumentID    string `json:"document_id"`
	Chunks        int    `json:"chunks"`
	RemovedChunks int    `json:"removed_chunks,omitempty"`
	IndexVersion  uint64 `json:"index_version"`
}

type documentResponse struct {
	DocumentID string     `json:"document_id"`
	Language   string     `json:"language,omitempty"`
	Chunks     int        `json:"chunks"`
	Text       string     `json:"text"`
	Source     *sourceDTO `json:"source,omitempty"`
}

type searchRequest struct {
	Query          string   `json:"query"`
	LanguageHint   string   `json:"language_hint,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty"`
	UseCache       *bool    `json:"use_cache,omitempty"`
}

type answerRequest struct {
	searchRequest
	MaxContext int `json:"max_context,omitempty"`
}

type resultDTO struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Position   int      `json:"position"`
	Text       string   `json:"text"`
	Score      float64  `json:"score"`
	Rank       int      `json:"rank"`
	Sources    []string `json:"sources"`
}

type confidenceDTO struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type searchResponse struct {
	Results      []resultDTO   `json:"results"`
	Confidence   confidenceDTO `json:"confidence"`
	Degraded     bool          `json:"degraded"`
	Partial      bool          `json:"partial"`
	Cached       bool          `json:"cached"`
	IndexVersion uint64        `json:"index_version"`
}

type answerResponse struct {
	Answer  string `json:"answer"`
	Refused bool   `json:"refused"`
	Model   string `json:"model,omitempty"`
	searchResponse
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleIngest handles POST /v1/documents.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var src document.Source
	if req.Source != nil {
		src = document.Source{Filename: req.Source.Filename, Format: req.Source.Format}
	}
	doc, err := document.New(req.ID, req.Text, language.Language(req.Language), src)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			s.handleDomainError(w, err)
		} else {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		}
		return
	}

	report, err := s.ingest.Ingest(r.Context(), doc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeader(w, report.TotalTokens)
	writeJSON(w, http.StatusCreated, ingestResponse{
		DocumentID:    report.DocumentID,
		Chunks:        report.Chunks,
		RemovedChunks: report.RemovedChunks,
		IndexVersion:  report.Version,
	})
}

// handleGetDocument handles GET /v1/documents/{documentID}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")

	doc, chunks, err := s.ingest.Get(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := documentResponse{
		DocumentID: doc.ID(),
		Language:   string(doc.Language()),
		Chunks:     len(chunks),
		Text:       doc.Text(),
	}
	if src := doc.Source(); src != (document.Source{}) {
		resp.Source = &sourceDTO{Filename: src.Filename, Format: src.Format}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteDocument handles DELETE /v1/documents/{documentID}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")

	if _, err := s.ingest.Delete(r.Context(), docID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch handles POST /v1/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sreq, err := s.toDomainRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), &sreq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseFromDomain(resp))
}

// handleAnswer handles POST /v1/answers.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sreq, err := s.toDomainRequest(req.searchRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	resp, err := s.answers.Answer(r.Context(), &sreq, req.MaxContext)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Answer:  resp.Answer,
		Refused: resp.Refused,
		Model:   resp.Model,
		searchResponse: searchResponseFromDomain(searchuc.Response{
			Set:        resp.Set,
			Confidence: resp.Confidence,
			Cached:     resp.Cached,
		}),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) toDomainRequest(req searchRequest) (request.Request, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if s.maxTopK > 0 && topK > s.maxTopK {
		topK = s.maxTopK
	}
	weight := -1.0
	if req.SemanticWeight != nil {
		weight = *req.SemanticWeight
	}
	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}
	return request.New(req.Query, language.Language(req.LanguageHint), topK, weight, useCache)
}

func searchResponseFromDomain(resp searchuc.Response) searchResponse {
	results := make([]resultDTO, len(resp.Set.Results))
	for i := range resp.Set.Results {
		results[i] = resultFromDomain(&resp.Set.Results[i])
	}
	return searchResponse{
		Results: results,
		Confidence: confidenceDTO{
			Score: resp.Confidence.Value(),
			Label: string(resp.Confidence.Label()),
		},
		Degraded:     resp.Set.Degraded,
		Partial:      resp.Set.Partial,
		Cached:       resp.Cached,
		IndexVersion: resp.Set.Version,
	}
}

func resultFromDomain(r *result.Ranked) resultDTO {
	sources := make([]string, len(r.Sources()))
	for i, src := range r.Sources() {
		sources[i] = string(src)
	}
	return resultDTO{
		ChunkID:    r.ChunkID(),
		DocumentID: r.DocumentID(),
		Position:   r.Position(),
		Text:       r.Text(),
		Score:      r.Score(),
		Rank:       r.Rank(),
		Sources:    sources,
	}
}

func setEmbeddingHeader(w http.ResponseWriter, tokens int) {
	if tokens > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyDocument,
		domain.ErrInvalidArgument,
		domain.ErrVectorDimMismatch,
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrUnsupportedFormat,
		domain.ErrIndexVersionMismatch,
		domain.ErrEmbeddingUnavailable,
		domain.ErrExpansionUnavailable,
		domain.ErrGenerationUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// versionMismatchHandler handles index version drift with both tags in the body.
func versionMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrIndexVersionMismatch) {
		return false
	}
	var mismatch *domain.VersionMismatchError
	if errors.As(err, &mismatch) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":    codeIndexVersionMismatch,
			"message": msg,
			"want":    mismatch.Want,
			"got":     mismatch.Got,
		})
		return true
	}
	writeError(w, http.StatusConflict, codeIndexVersionMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
