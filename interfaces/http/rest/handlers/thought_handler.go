package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thoughtgraph/domain/thought"
	"thoughtgraph/infrastructure/persistence/file"
	"thoughtgraph/pkg/common"
)

const maxBodyBytes = 10 << 20

// ThoughtHandler serves the thought collection endpoints.
type ThoughtHandler struct {
	store  *file.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewThoughtHandler creates a handler over the given store.
func NewThoughtHandler(store *file.Store, logger *zap.Logger) *ThoughtHandler {
	return &ThoughtHandler{store: store, logger: logger, now: time.Now}
}

// saveRequest is the collection replacement body. Thoughts stays raw so
// a present-but-wrong-type field is distinguishable from an absent one.
type saveRequest struct {
	Thoughts json.RawMessage `json:"thoughts"`
}

// GetThoughts returns the full collection.
func (h *ThoughtHandler) GetThoughts(w http.ResponseWriter, r *http.Request) {
	thoughts, err := h.store.Load()
	if err != nil {
		h.logger.Error("load thoughts", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Failed to read thoughts")
		return
	}
	common.RespondJSON(w, http.StatusOK, common.ThoughtsResponse{
		Success:   true,
		Thoughts:  thoughts,
		Timestamp: common.Stamp(h.now()),
	})
}

// SaveThoughts replaces the full collection. The body must carry a
// thoughts array; anything else is a validation failure.
func (h *ThoughtHandler) SaveThoughts(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	// A JSON null decodes into a nil slice, so nil-after-decode means
	// the body did not carry an array.
	var thoughts []thought.Thought
	if req.Thoughts == nil || json.Unmarshal(req.Thoughts, &thoughts) != nil || thoughts == nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid data format: thoughts must be an array")
		return
	}

	if err := h.store.Save(thoughts); err != nil {
		h.logger.Error("save thoughts", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "Failed to save thoughts")
		return
	}

	h.logger.Info("saved thoughts", zap.Int("count", len(thoughts)))
	common.RespondJSON(w, http.StatusOK, common.SaveResponse{
		Success:   true,
		Message:   "Thoughts saved successfully",
		Timestamp: common.Stamp(h.now()),
		Count:     len(thoughts),
	})
}

// Status reports liveness and the backing data file.
func (h *ThoughtHandler) Status(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, common.StatusResponse{
		Success:   true,
		Message:   "Server is running",
		Timestamp: common.Stamp(h.now()),
		DataFile:  h.store.Path(),
	})
}
