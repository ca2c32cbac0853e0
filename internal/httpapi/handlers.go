package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	playgroundvalidator "github.com/go-playground/validator/v10"

	"github.com/rawcontext/engram-sub001/internal/apierr"
	"github.com/rawcontext/engram-sub001/internal/auth"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
	"github.com/rawcontext/engram-sub001/internal/memory"
	"github.com/rawcontext/engram-sub001/internal/tenant"
	"github.com/rawcontext/engram-sub001/internal/validator"
)

var structValidator = playgroundvalidator.New()

// RememberRequest is the body of POST /v1/memory/remember (§6.2).
type RememberRequest struct {
	Content string   `json:"content" validate:"required,min=1,max=50000"`
	Type    string   `json:"type" validate:"omitempty,oneof=decision context insight preference fact"`
	Tags    []string `json:"tags" validate:"omitempty,dive,max=100"`
	Project string   `json:"project"`
}

// RecallFilterRequest is the optional `filters` object of a recall body.
type RecallFilterRequest struct {
	Type       string `json:"type"`
	Project    string `json:"project"`
	After      string `json:"after"`
	Before     string `json:"before"`
	VTEndAfter *int64 `json:"vtEndAfter"`
}

// RecallRequest is the body of POST /v1/memory/recall (§6.2).
type RecallRequest struct {
	Query      string               `json:"query" validate:"required,min=1,max=1000"`
	Limit      int                  `json:"limit" validate:"omitempty,min=1,max=20"`
	Filters    *RecallFilterRequest `json:"filters"`
	Rerank     *bool                `json:"rerank"`
	RerankTier string               `json:"rerank_tier" validate:"omitempty,oneof=fast accurate code llm"`
}

// QueryRequest is the body of POST /v1/memory/query (§6.2).
type QueryRequest struct {
	Cypher string         `json:"cypher" validate:"required,min=1,max=5000"`
	Params map[string]any `json:"params"`
}

// ContextRequest is the body of POST /v1/memory/context (§6.2).
type ContextRequest struct {
	Task  string   `json:"task" validate:"required,min=1,max=2000"`
	Files []string `json:"files"`
	Depth string   `json:"depth" validate:"omitempty,oneof=shallow medium deep"`
}

// decodeAndValidate decodes r's JSON body into dst and runs struct-tag
// validation (§4.9: go-playground/validator/v10), collapsing either
// failure into a single VALIDATION_ERROR AppError.
func decodeAndValidate(r *http.Request, dst any) *apierr.AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierr.New(apierr.CodeValidation, "invalid request body", map[string]any{"error": err.Error()})
	}
	if err := structValidator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *apierr.AppError {
	var fields []map[string]string
	if verrs, ok := err.(playgroundvalidator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
				"param": fe.Param(),
			})
		}
	}
	return apierr.New(apierr.CodeValidation, "request failed validation", map[string]any{"fields": fields})
}

func tenantFromRequest(r *http.Request) (tenant.TenantContext, *apierr.AppError) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		return tenant.TenantContext{}, apierr.Unauthorized("Missing Authorization header")
	}
	return ac.TenantContext(), nil
}

func (h *handlers) remember(w http.ResponseWriter, r *http.Request) {
	var req RememberRequest
	if aerr := decodeAndValidate(r, &req); aerr != nil {
		writeAppError(w, aerr)
		return
	}
	tc, aerr := tenantFromRequest(r)
	if aerr != nil {
		writeAppError(w, aerr)
		return
	}

	result, err := h.svc.Remember(r.Context(), tc, memory.RememberInput{
		Content: req.Content,
		Type:    req.Type,
		Tags:    req.Tags,
		Project: req.Project,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeSuccess(w, status, map[string]any{
		"id":        result.ID,
		"stored":    result.Stored,
		"duplicate": result.Duplicate,
	})
}

func (h *handlers) recall(w http.ResponseWriter, r *http.Request) {
	var req RecallRequest
	if aerr := decodeAndValidate(r, &req); aerr != nil {
		writeAppError(w, aerr)
		return
	}
	tc, aerr := tenantFromRequest(r)
	if aerr != nil {
		writeAppError(w, aerr)
		return
	}

	filters, aerr := parseRecallFilters(req.Filters)
	if aerr != nil {
		writeAppError(w, aerr)
		return
	}

	rerank := memory.DefaultRerankOptions()
	if req.Rerank != nil {
		rerank.Rerank = *req.Rerank
	}
	if req.RerankTier != "" {
		rerank.Tier = req.RerankTier
	}

	items, err := h.svc.Recall(r.Context(), tc, req.Query, req.Limit, filters, rerank)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"memories": recallItemsToWire(items)})
}

func parseRecallFilters(in *RecallFilterRequest) (memory.RecallFilters, *apierr.AppError) {
	if in == nil {
		return memory.RecallFilters{}, nil
	}
	filters := memory.RecallFilters{Type: in.Type, Project: in.Project, VTEndAfter: in.VTEndAfter}
	if in.After != "" {
		ts, err := parseISOInstant(in.After)
		if err != nil {
			return memory.RecallFilters{}, apierr.New(apierr.CodeValidation, "invalid filters.after", map[string]any{"error": err.Error()})
		}
		filters.After = &ts
	}
	if in.Before != "" {
		ts, err := parseISOInstant(in.Before)
		if err != nil {
			return memory.RecallFilters{}, apierr.New(apierr.CodeValidation, "invalid filters.before", map[string]any{"error": err.Error()})
		}
		filters.Before = &ts
	}
	return filters, nil
}

func parseISOInstant(s string) (bitemporal.Instant, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

func recallItemsToWire(items []memory.RecallItem) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		m := map[string]any{
			"id":            it.ID,
			"content":       it.Content,
			"type":          it.Type,
			"tags":          it.Tags,
			"score":         it.BaseScore,
			"decayScore":    it.DecayScore,
			"weightedScore": it.Score,
			"createdAt":     time.UnixMilli(it.Timestamp).UTC().Format(time.RFC3339),
			"invalidated":   it.Invalidated,
		}
		if it.ReplacedBy != nil {
			m["replacedBy"] = *it.ReplacedBy
		}
		out[i] = m
	}
	return out
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if aerr := decodeAndValidate(r, &req); aerr != nil {
		writeAppError(w, aerr)
		return
	}
	tc, aerr := tenantFromRequest(r)
	if aerr != nil {
		writeAppError(w, aerr)
		return
	}

	if err := validator.Validate(req.Cypher, h.registry); err != nil {
		writeError(w, err)
		return
	}

	rows, err := h.svc.Query(r.Context(), tc, req.Cypher, normalizeParams(req.Params))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"results": rows})
}

func normalizeParams(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	return params
}

func (h *handlers) getContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if aerr := decodeAndValidate(r, &req); aerr != nil {
		writeAppError(w, aerr)
		return
	}
	tc, aerr := tenantFromRequest(r)
	if aerr != nil {
		writeAppError(w, aerr)
		return
	}

	items, err := h.svc.GetContext(r.Context(), tc, req.Task, req.Files, depthFromWire(req.Depth))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{
			"type":      it.Type,
			"content":   it.Content,
			"relevance": it.Relevance,
			"source":    it.Source,
		}
	}
	writeSuccess(w, http.StatusOK, map[string]any{"context": out})
}

func depthFromWire(depth string) int {
	switch strings.ToLower(depth) {
	case "medium":
		return memory.DepthMedium
	case "deep":
		return memory.DepthDeep
	default:
		return memory.DepthShallow
	}
}
