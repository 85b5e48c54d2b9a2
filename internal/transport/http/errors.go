package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidID          = "invalid_id"
	codeInvalidQuantity    = "invalid_quantity"
	codeInvalidWindow      = "invalid_window"
	codeInfeasible         = "infeasible_request"
	codeCommitConflict     = "commit_conflict"
	codePolicyViolation    = "policy_violation"
	codeInvalidTransition  = "invalid_transition"
	codeStoreUnavailable   = "store_unavailable"
	codeItemExists         = "item_already_exists"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error      string          `json:"error"`
	Code       string          `json:"code"`
	Rejections []rejectionJSON `json:"rejections,omitempty"`
}

// rejectionJSON carries enough structure for a caller to offer alternatives
// instead of a bare failure.
type rejectionJSON struct {
	ItemID        string     `json:"item_id"`
	Reason        string     `json:"reason"`
	Requested     int        `json:"requested"`
	Available     int        `json:"available"`
	NextStart     *time.Time `json:"next_available_start,omitempty"`
	NextEnd       *time.Time `json:"next_available_end,omitempty"`
	NextSuggested bool       `json:"next_window_suggested"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorWithRejections(w, status, code, msg, nil)
}

func writeErrorWithRejections(w http.ResponseWriter, status int, code, msg string, rejections []domain.Rejection) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := errorResponse{Error: msg, Code: code}
	for _, r := range rejections {
		rj := rejectionJSON{
			ItemID:    r.ItemID,
			Reason:    string(r.Reason),
			Requested: r.Requested,
			Available: r.Available,
		}
		if r.NextWindow != nil {
			start, end := r.NextWindow.Start, r.NextWindow.End
			rj.NextStart = &start
			rj.NextEnd = &end
			rj.NextSuggested = true
		}
		resp.Rejections = append(resp.Rejections, rj)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses. The
// caller-facing distinction matters: 409 means adjust the request or retry
// with fresh state, 422 means change dates or order size, 503 means the
// system is degraded and nothing can be said about capacity.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		infeasible   *domain.InfeasibleError
		conflict     *domain.ConflictError
		policy       *domain.PolicyViolationError
		transition   *domain.InvalidTransitionError
		storeFailure *domain.StoreUnavailableError
	)

	switch {
	case errors.As(err, &infeasible):
		writeErrorWithRejections(w, http.StatusConflict, codeInfeasible, "requested items are not available for that window", infeasible.Rejections)
	case errors.As(err, &conflict):
		writeErrorWithRejections(w, http.StatusConflict, codeCommitConflict, "booking lost a concurrent race; re-plan and try again", conflict.Rejections)
	case errors.As(err, &policy):
		writeError(w, http.StatusUnprocessableEntity, codePolicyViolation, policy.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, codeInvalidTransition, transition.Error())
	case errors.As(err, &storeFailure):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "temporarily unable to check availability")
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrBusinessNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrNoLines):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, codeInvalidWindow, err.Error())
	case errors.Is(err, domain.ErrItemExists):
		writeError(w, http.StatusConflict, codeItemExists, err.Error())
	case errors.Is(err, domain.ErrItemNameRequired),
		errors.Is(err, domain.ErrInvalidItemType),
		errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
