package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/farecast/internal/domain/trip"
	"github.com/okian/farecast/internal/domain/types"
)

// predictRequest is the body of POST /predict: one trip in the input contract.
type predictRequest = trip.Raw

// batchRequest is the body of POST /predict/batch.
type batchRequest struct {
	Trips []trip.Raw `json:"trips"`
}

type batchResponse struct {
	Predictions []types.Prediction `json:"predictions"`
}

// PredictHandler handles fare prediction requests.
type PredictHandler struct {
	deps     Dependencies
	maxBatch int
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps, maxBatch: defaultMaxBatchSize}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req predictRequest
	if err := decode(w, r, &req); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := req.Record()
	if err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.Predict(r.Context(), rec)
	if err != nil {
		writeKindError(w, WrapKind(op, classify(err), err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePredictBatch handles POST /predict/batch requests.
func (h *PredictHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Trips) > h.maxBatch {
		writeKindError(w, WrapKind(op, ErrBatchTooLong, fmt.Errorf("%d trips, limit %d", len(req.Trips), h.maxBatch)))
		return
	}
	records := make([]trip.Record, len(req.Trips))
	for i, raw := range req.Trips {
		rec, err := raw.Record()
		if err != nil {
			writeKindError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("trip %d: %w", i, err)))
			return
		}
		records[i] = rec
	}
	out, err := h.deps.PredictBatch(r.Context(), records)
	if err != nil {
		writeKindError(w, WrapKind(op, classify(err), err))
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Predictions: out})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
