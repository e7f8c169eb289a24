package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
	logx "github.com/tanpawarit/salesops-assistant/pkg/logger"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := "internal error"
	switch {
	case errors.Is(err, cardsx.ErrNotFound):
		status, detail = http.StatusNotFound, "Card not found"
	case errors.Is(err, cardsx.ErrInvalidCard), errors.Is(err, contractx.ErrValidation), errors.Is(err, errBadRequest):
		status, detail = http.StatusBadRequest, err.Error()
	case errors.Is(err, contractx.ErrAIUnavailable):
		status, detail = http.StatusServiceUnavailable, "AI service is not available. Please check the OpenRouter configuration."
	case errors.Is(err, contractx.ErrMalformedResponse):
		status, detail = http.StatusBadGateway, "AI service returned an unusable response."
	}
	if status >= http.StatusInternalServerError {
		logx.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}
