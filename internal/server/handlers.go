package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/YangKGcsdms/Dendrite/internal/pipeline"
	"github.com/YangKGcsdms/Dendrite/internal/progress"
	"github.com/YangKGcsdms/Dendrite/internal/queue"
	"github.com/YangKGcsdms/Dendrite/internal/search"
	"github.com/YangKGcsdms/Dendrite/internal/storage"
	"github.com/YangKGcsdms/Dendrite/pkg/types"
)

// The handler layer depends on narrow interfaces so tests can fake each
// collaborator independently.

type evaluationProcessor interface {
	ProcessAsync(task types.EvaluationTask) string
}

type progressReader interface {
	Get(taskID string) (progress.Update, bool)
}

type pipelineTrigger interface {
	TriggerNow(ctx context.Context) (*pipeline.Result, error)
}

type tagSubmitter interface {
	SubmitTag(ctx context.Context, creator, target, rawTag, tagContext string) (*types.EvaluationTag, error)
}

type searcher interface {
	Search(ctx context.Context, query string, limit int) ([]storage.RankedProfile, error)
	Ask(ctx context.Context, query string) (string, []storage.RankedProfile, error)
	BatchSearch(ctx context.Context, queries []string, limit int) []search.BatchSearchResult
	BatchAsk(ctx context.Context, queries []string) []search.BatchAskResult
	SetQueryExpansion(enabled bool)
	QueryExpansionEnabled() bool
}

type hitTracker interface {
	TrackSearchHit(ctx context.Context, targetEmployee, query, triggerUser string) (int, error)
}

type rewardReader interface {
	History(ctx context.Context, employee string) ([]*types.RewardRecord, error)
}

type contributorReader interface {
	ContributorByEmployee(ctx context.Context, employeeName string) (*types.ContributorProfile, error)
}

// Handlers carries every API dependency.
type Handlers struct {
	queue        queue.Queue
	processor    evaluationProcessor
	progress     progressReader
	trigger      pipelineTrigger
	tags         tagSubmitter
	search       searcher
	attribution  hitTracker
	rewards      rewardReader
	contributors contributorReader
	provider     string
	model        string
}

// NewHandlers wires the API handlers.
func NewHandlers(q queue.Queue, processor evaluationProcessor, progress progressReader, trigger pipelineTrigger, tags tagSubmitter, searcher searcher, attribution hitTracker, rewards rewardReader, contributors contributorReader, provider, model string) *Handlers {
	return &Handlers{
		queue:        q,
		processor:    processor,
		progress:     progress,
		trigger:      trigger,
		tags:         tags,
		search:       searcher,
		attribution:  attribution,
		rewards:      rewards,
		contributors: contributors,
		provider:     provider,
		model:        model,
	}
}

type evaluationRequest struct {
	EmployeeName string `json:"employee_name"`
	Content      string `json:"content"`
}

// SubmitEvaluation accepts one evaluation into the durable queue.
func (h *Handlers) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := types.ValidateEvaluation(req.EmployeeName, req.Content); err != nil {
		respondError(w, err)
		return
	}

	task := types.EvaluationTask{EmployeeName: req.EmployeeName, RawContent: req.Content}
	if err := h.queue.Push(r.Context(), task); err != nil {
		respondError(w, types.WrapError(types.ErrCodeInternal, err, "enqueuing evaluation"))
		return
	}

	size, _ := h.queue.Size(r.Context())
	respondMessage(w, http.StatusAccepted, "evaluation accepted", map[string]interface{}{
		"queue_size": size,
	})
}

type batchEvaluationRequest struct {
	Evaluations []evaluationRequest `json:"evaluations"`
}

// SubmitEvaluationBatch enqueues evaluations in order, validating each
// entry just before it is pushed. The first invalid entry aborts the batch
// with a validation error; entries enqueued before it stay enqueued, since
// the queue is durable and a pop is destructive.
func (h *Handlers) SubmitEvaluationBatch(w http.ResponseWriter, r *http.Request) {
	var req batchEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if len(req.Evaluations) == 0 {
		respondMessage(w, http.StatusBadRequest, "evaluations list is empty", nil)
		return
	}

	for i, e := range req.Evaluations {
		if err := types.ValidateEvaluation(e.EmployeeName, e.Content); err != nil {
			respondError(w, types.WrapError(types.ErrCodeValidation, err,
				"evaluation %d of %d rejected, %d already enqueued", i+1, len(req.Evaluations), i))
			return
		}
		task := types.EvaluationTask{EmployeeName: e.EmployeeName, RawContent: e.Content}
		if err := h.queue.Push(r.Context(), task); err != nil {
			respondError(w, types.WrapError(types.ErrCodeInternal, err, "enqueuing evaluation %d", i+1))
			return
		}
	}

	size, _ := h.queue.Size(r.Context())
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"accepted":   len(req.Evaluations),
		"queue_size": size,
	})
}

// SubmitEvaluationRealtime bypasses the queue and processes immediately,
// returning a progress task ID to watch.
func (h *Handlers) SubmitEvaluationRealtime(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := types.ValidateEvaluation(req.EmployeeName, req.Content); err != nil {
		respondError(w, err)
		return
	}

	taskID := h.processor.ProcessAsync(types.EvaluationTask{EmployeeName: req.EmployeeName, RawContent: req.Content})
	respondJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

// GetProgress returns the latest progress update for a real-time task.
func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	update, ok := h.progress.Get(taskID)
	if !ok {
		respondMessage(w, http.StatusNotFound, "unknown or expired task", nil)
		return
	}
	respondJSON(w, http.StatusOK, update)
}

type tagRequest struct {
	CreatorEmployee string `json:"creator_employee"`
	TargetEmployee  string `json:"target_employee"`
	TagName         string `json:"tag_name"`
	Context         string `json:"context"`
}

// SubmitTag accepts a contributor tag.
func (h *Handlers) SubmitTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	tag, err := h.tags.SubmitTag(r.Context(), req.CreatorEmployee, req.TargetEmployee, req.TagName, req.Context)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// Search handles GET /api/search?q=...&limit=N.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "limit must be an integer", nil)
			return
		}
		limit = n
	}

	matches, err := h.search.Search(r.Context(), query, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"matches": matches,
	})
}

type batchQueryRequest struct {
	Queries []string `json:"queries"`
	Limit   int      `json:"limit"`
}

// BatchSearch handles POST /api/search/batch.
func (h *Handlers) BatchSearch(w http.ResponseWriter, r *http.Request) {
	var req batchQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if len(req.Queries) == 0 {
		respondMessage(w, http.StatusBadRequest, "queries list is empty", nil)
		return
	}
	respondJSON(w, http.StatusOK, h.search.BatchSearch(r.Context(), req.Queries, req.Limit))
}

// Ask handles GET /api/ask?q=... with a natural-language recommendation.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	answer, matches, err := h.search.Ask(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"answer":  answer,
		"matches": matches,
	})
}

// BatchAsk handles POST /api/ask/batch.
func (h *Handlers) BatchAsk(w http.ResponseWriter, r *http.Request) {
	var req batchQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if len(req.Queries) == 0 {
		respondMessage(w, http.StatusBadRequest, "queries list is empty", nil)
		return
	}
	respondJSON(w, http.StatusOK, h.search.BatchAsk(r.Context(), req.Queries))
}

type searchHitRequest struct {
	TargetEmployee string `json:"target_employee"`
	Query          string `json:"query"`
	TriggerUser    string `json:"trigger_user"`
}

// ReportSearchHit records a successful search outcome and credits the tags
// that made it happen.
func (h *Handlers) ReportSearchHit(w http.ResponseWriter, r *http.Request) {
	var req searchHitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	credited, err := h.attribution.TrackSearchHit(r.Context(), req.TargetEmployee, req.Query, req.TriggerUser)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"credited_tags": credited})
}

// GetRewards returns an employee's reward history, newest first.
func (h *Handlers) GetRewards(w http.ResponseWriter, r *http.Request) {
	employee := r.PathValue("employee")
	history, err := h.rewards.History(r.Context(), employee)
	if err != nil {
		respondError(w, types.WrapError(types.ErrCodeInternal, err, "loading rewards for %s", employee))
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// GetContributor returns an employee's gamification state.
func (h *Handlers) GetContributor(w http.ResponseWriter, r *http.Request) {
	employee := r.PathValue("employee")
	contributor, err := h.contributors.ContributorByEmployee(r.Context(), employee)
	if errors.Is(err, storage.ErrNotFound) {
		respondMessage(w, http.StatusNotFound, "no contributor record for "+employee, nil)
		return
	}
	if err != nil {
		respondError(w, types.WrapError(types.ErrCodeInternal, err, "loading contributor %s", employee))
		return
	}
	respondJSON(w, http.StatusOK, contributor)
}

// GetQueue reports the intake queue depth.
func (h *Handlers) GetQueue(w http.ResponseWriter, r *http.Request) {
	size, err := h.queue.Size(r.Context())
	if err != nil {
		respondError(w, types.WrapError(types.ErrCodeInternal, err, "reading queue size"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"queue_size": size})
}

// TriggerQueue runs one pipeline cycle synchronously.
func (h *Handlers) TriggerQueue(w http.ResponseWriter, r *http.Request) {
	result, err := h.trigger.TriggerNow(r.Context())
	if err != nil {
		respondError(w, types.WrapError(types.ErrCodeInternal, err, "manual trigger"))
		return
	}
	if result == nil {
		respondMessage(w, http.StatusOK, "queue is empty, nothing to process", nil)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type economyRequest struct {
	QueryExpansion bool `json:"query_expansion"`
}

// SetEconomyMode toggles AI query expansion process-wide. Disabling it is
// "economy mode": searches skip the expansion model call entirely.
func (h *Handlers) SetEconomyMode(w http.ResponseWriter, r *http.Request) {
	var req economyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	h.search.SetQueryExpansion(req.QueryExpansion)
	log.Printf("Economy mode updated: query expansion %v", req.QueryExpansion)
	respondJSON(w, http.StatusOK, map[string]bool{"query_expansion": h.search.QueryExpansionEnabled()})
}

// Health reports liveness. No auth so monitors can always reach it.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"provider": h.provider,
		"model":    h.model,
	})
}
