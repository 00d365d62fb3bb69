package server

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vanshika/filmgraph/internal/service"
)

const maxBodyBytes = 1 << 20

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.RecommendationService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.RecommendationService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.ListItems(r.Context(), service.ListItemsParams{
		Page:     parseInt(query.Get("page"), 1),
		PageSize: parseInt(query.Get("pageSize"), 0),
		Search:   query.Get("search"),
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to list items")
		return
	}

	resp := listItemsResponse{
		Items:      make([]itemResponse, 0, len(result.Items)),
		Pagination: toPaginationResponse(result.Pagination),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, itemResponse{Title: item.Title, Reviewers: item.Reviewers})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) recommend(w http.ResponseWriter, r *http.Request) {
	var payload recommendRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	result, err := h.service.Recommend(r.Context(), service.RecommendParams{
		Items:    payload.Items,
		Page:     payload.Page,
		PageSize: payload.PageSize,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to compute recommendations")
		return
	}

	resp := recommendResponse{
		Seeds:      payload.Items,
		Items:      make([]recommendationResponse, 0, len(result.Items)),
		Pagination: toPaginationResponse(result.Pagination),
	}
	for _, rec := range result.Items {
		resp.Items = append(resp.Items, recommendationResponse{Item: rec.Item, Score: rec.Score})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) explainPair(w http.ResponseWriter, r *http.Request) {
	source, err := pathParam(r, "item")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item")
		return
	}
	target, err := pathParam(r, "target")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target")
		return
	}

	explanation, err := h.service.ExplainPair(r.Context(), source, target)
	if err != nil {
		h.writeServiceError(w, err, "failed to enumerate paths")
		return
	}

	resp := pairResponse{
		Source:    explanation.Source,
		Target:    explanation.Target,
		Value:     explanation.Value,
		Truncated: explanation.Truncated,
		Paths:     make([]pathResponse, 0, len(explanation.Paths)),
	}
	for _, p := range explanation.Paths {
		resp.Paths = append(resp.Paths, pathResponse{
			Vertices:      p.Vertices,
			Length:        p.Length,
			Weight:        p.Weight,
			AverageWeight: p.AverageWeight,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) submitReviewer(w http.ResponseWriter, r *http.Request) {
	var payload reviewerRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.SubmitReviewer(r.Context(), service.ReviewerInput{
		Name:    payload.Name,
		Ratings: payload.Ratings,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to store reviewer")
		return
	}

	respondJSON(w, http.StatusCreated, reviewerResponse{
		Reviewer: result.Reviewer,
		Applied:  result.Applied,
		Stored:   result.Stored,
	})
}

func (h *APIHandlers) exportItems(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	var items []itemResponse
	for page := 1; ; page++ {
		result, err := h.service.ListItems(r.Context(), service.ListItemsParams{Page: page, PageSize: exportPageSize})
		if err != nil {
			h.writeServiceError(w, err, "failed to export items")
			return
		}
		for _, item := range result.Items {
			items = append(items, itemResponse{Title: item.Title, Reviewers: item.Reviewers})
		}
		if page >= result.Pagination.TotalPages {
			break
		}
	}

	if format == "json" {
		if items == nil {
			items = []itemResponse{}
		}
		respondJSON(w, http.StatusOK, items)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="items.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"title", "reviewers"})
	for _, item := range items {
		_ = cw.Write([]string{item.Title, strconv.Itoa(item.Reviewers)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("csv export failed", "error", err)
	}
}

const exportPageSize = 200

func (h *APIHandlers) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// --- Request & Response DTOs ---

type recommendRequest struct {
	Items    []string `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}

type reviewerRequest struct {
	Name    string         `json:"name"`
	Ratings map[string]int `json:"ratings"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type itemResponse struct {
	Title     string `json:"title"`
	Reviewers int    `json:"reviewers"`
}

type listItemsResponse struct {
	Items      []itemResponse     `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type recommendationResponse struct {
	Item  string  `json:"item"`
	Score float64 `json:"score"`
}

type recommendResponse struct {
	Seeds      []string                 `json:"seeds"`
	Items      []recommendationResponse `json:"items"`
	Pagination paginationResponse       `json:"pagination"`
}

type pathResponse struct {
	Vertices      []string `json:"vertices"`
	Length        int      `json:"length"`
	Weight        int      `json:"weight"`
	AverageWeight float64  `json:"averageWeight"`
}

type pairResponse struct {
	Source    string         `json:"source"`
	Target    string         `json:"target"`
	Value     float64        `json:"value"`
	Truncated bool           `json:"truncated"`
	Paths     []pathResponse `json:"paths"`
}

type reviewerResponse struct {
	Reviewer string `json:"reviewer"`
	Applied  int    `json:"applied"`
	Stored   int    `json:"stored"`
}

// --- Helpers ---

func toPaginationResponse(p service.PaginationMeta) paginationResponse {
	return paginationResponse{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// pathParam returns a decoded URL parameter. chi matches on the raw path
// when the request carries escapes such as %2F, so those are undone here.
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
