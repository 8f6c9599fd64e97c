// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/internal/pipeline"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Input limits for the form and the JSON API.
const (
	minAge           = 1
	maxAge           = 120
	maxSupplementLen = 200
	maxGoalLen       = 200
)

// Analyzer runs one analysis request. *pipeline.Pipeline satisfies it.
type Analyzer interface {
	Run(ctx context.Context, req types.AnalysisRequest) (*types.FinalReport, error)
}

// Handler serves the HTML and JSON endpoints.
type Handler struct {
	analyzer Analyzer
	page     *template.Template
}

// NewHandler parses the page template and returns a Handler backed by
// analyzer.
func NewHandler(analyzer Analyzer) (*Handler, error) {
	page, err := template.New("index.html").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(assets, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Handler{analyzer: analyzer, page: page}, nil
}

// pageData is the view model for templates/index.html. Age is kept as the
// raw form text so invalid input is redisplayed as typed.
type pageData struct {
	Supplement string
	Age        string
	Goal       string
	Error      string
	Report     *reportView
}

type reportView struct {
	Sections     []sectionView
	Bibliography []types.BibliographyEntry
}

type sectionView struct {
	Heading string
	Text    string
	Markers []int
}

func newReportView(r *types.FinalReport) *reportView {
	v := &reportView{Bibliography: r.Bibliography}
	for _, sec := range r.Sections {
		v.Sections = append(v.Sections, sectionView{
			Heading: sec.Heading,
			Text:    sec.Text,
			Markers: r.Markers(sec),
		})
	}
	return v
}

// Index renders the empty form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageData{Goal: types.DefaultGoal})
}

// Analyze handles the form post: it validates the input, runs the pipeline
// and renders either the report or the stage's error message. Inputs are
// always redisplayed.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageData{Goal: types.DefaultGoal, Error: "Could not read the form."})
		return
	}
	data := pageData{
		Supplement: strings.TrimSpace(r.PostForm.Get("supplement")),
		Age:        strings.TrimSpace(r.PostForm.Get("age")),
		Goal:       strings.TrimSpace(r.PostForm.Get("goal")),
	}
	if data.Goal == "" {
		data.Goal = types.DefaultGoal
	}

	age, err := parseAge(data.Age)
	if err == nil {
		err = validate(types.AnalysisRequest{Supplement: data.Supplement, Age: age, Goal: data.Goal})
	}
	if err != nil {
		data.Error = inputMessage(err)
		h.render(w, r, http.StatusBadRequest, data)
		return
	}

	zerolog.Ctx(ctx).Info().Str("supplement", data.Supplement).Int("age", age).Str("goal", data.Goal).Msg("starting analysis")
	report, err := h.analyzer.Run(ctx, types.AnalysisRequest{Supplement: data.Supplement, Age: age, Goal: data.Goal})
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Msg("analysis ended without a report")
		data.Error = pipeline.UserMessage(err)
		h.render(w, r, http.StatusOK, data)
		return
	}

	data.Report = newReportView(report)
	h.render(w, r, http.StatusOK, data)
}

// apiResponse is the body of a successful POST /api/v1/analyze.
type apiResponse struct {
	Request types.AnalysisRequest `json:"request"`
	Report  *types.FinalReport    `json:"report"`
}

type apiError struct {
	Error   string                 `json:"error"`
	Request *types.AnalysisRequest `json:"request,omitempty"`
}

// AnalyzeAPI is the JSON form of Analyze. Stage failures map to status codes:
// no studies or nothing relevant is 422, a synthesis failure is 502.
func (h *Handler) AnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, apiError{Error: "invalid JSON body: " + err.Error()})
		return
	}
	req.Supplement = strings.TrimSpace(req.Supplement)
	req.Goal = strings.TrimSpace(req.Goal)
	if req.Goal == "" {
		req.Goal = types.DefaultGoal
	}
	if err := validate(req); err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, apiError{Error: inputMessage(err), Request: &req})
		return
	}

	report, err := h.analyzer.Run(ctx, req)
	if err != nil {
		writeJSON(ctx, w, statusFor(err), apiError{Error: pipeline.UserMessage(err), Request: &req})
		return
	}
	writeJSON(ctx, w, http.StatusOK, apiResponse{Request: req, Report: report})
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrSourceEmpty), errors.Is(err, pipeline.ErrCurationEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrSynthesisFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// inputError is a rejected form or API field. Message is shown to the user.
type inputError struct {
	Field   string
	Message string
}

func (e *inputError) Error() string { return "invalid " + e.Field }

// inputMessage returns the user-facing text for a validation error.
func inputMessage(err error) string {
	var ie *inputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	return "Invalid request."
}

func parseAge(s string) (int, error) {
	if s == "" {
		return 0, &inputError{Field: "age", Message: "Please enter your age."}
	}
	age, err := strconv.Atoi(s)
	if err != nil {
		return 0, &inputError{Field: "age", Message: "Age must be a whole number."}
	}
	return age, nil
}

func validate(req types.AnalysisRequest) error {
	switch {
	case req.Supplement == "":
		return &inputError{Field: "supplement", Message: "Please enter a supplement."}
	case utf8.RuneCountInString(req.Supplement) > maxSupplementLen:
		return &inputError{Field: "supplement", Message: fmt.Sprintf("Supplement must be at most %d characters.", maxSupplementLen)}
	case req.Age < minAge || req.Age > maxAge:
		return &inputError{Field: "age", Message: fmt.Sprintf("Age must be between %d and %d.", minAge, maxAge)}
	case utf8.RuneCountInString(req.Goal) > maxGoalLen:
		return &inputError{Field: "goal", Message: fmt.Sprintf("Goal must be at most %d characters.", maxGoalLen)}
	}
	return nil
}

// render executes the page into a buffer first so a template error can still
// produce a clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write page")
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}
