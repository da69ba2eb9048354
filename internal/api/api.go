// Package api holds the JSON wire types shared by the HTTP server and client.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/history"
)

type PriceRequest struct {
	Quote bsm.Quote      `json:"quote"`
	Type  bsm.OptionType `json:"type"`
}

type PriceResponse struct {
	Type  bsm.OptionType `json:"type"`
	Price float64        `json:"price"`
}

type GreeksResponse struct {
	Type   bsm.OptionType `json:"type"`
	Greeks bsm.Greeks     `json:"greeks"`
}

type CalculateRequest struct {
	Quote bsm.Quote `json:"quote"`
	Save  bool      `json:"save"`
}

// GridRequest mirrors grid.Request; an omitted resolution means grid.DefaultResolution.
type GridRequest struct {
	Quote         bsm.Quote      `json:"quote"`
	Type          bsm.OptionType `json:"type"`
	Resolution    *int           `json:"resolution,omitempty"`
	PnL           bool           `json:"pnl"`
	PurchasePrice *float64       `json:"purchase_price,omitempty"`
}

// Grid converts the wire request into an engine request.
func (r GridRequest) Grid() grid.Request {
	res := grid.DefaultResolution
	if r.Resolution != nil {
		res = *r.Resolution
	}
	return grid.Request{
		Quote:         r.Quote,
		Type:          r.Type,
		Resolution:    res,
		PnL:           r.PnL,
		PurchasePrice: r.PurchasePrice,
	}
}

type HistoryResponse struct {
	Records []history.Record `json:"records"`
}

// Error types carried in Error.Type.
const (
	TypeInvalidQuote     = "invalid_quote"
	TypeInvalidGridSize  = "invalid_grid_size"
	TypeMissingParameter = "missing_parameter"
	TypeBadRequest       = "bad_request"
	TypeUnavailable      = "unavailable"
	TypeInternal         = "internal"
)

// ErrBadRequest marks malformed requests that are not domain errors.
var ErrBadRequest = errors.New("bad request")

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap maps the wire type back onto the domain sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Type {
	case TypeInvalidQuote:
		return bsm.ErrInvalidQuote
	case TypeInvalidGridSize:
		return grid.ErrInvalidGridSize
	case TypeMissingParameter:
		return grid.ErrMissingParameter
	case TypeBadRequest:
		return ErrBadRequest
	}
	return nil
}

// Classify maps an error onto an HTTP status and wire type.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, bsm.ErrInvalidQuote):
		return http.StatusBadRequest, TypeInvalidQuote
	case errors.Is(err, grid.ErrInvalidGridSize):
		return http.StatusBadRequest, TypeInvalidGridSize
	case errors.Is(err, grid.ErrMissingParameter):
		return http.StatusBadRequest, TypeMissingParameter
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, TypeBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, TypeUnavailable
	}
	return http.StatusInternalServerError, TypeInternal
}

// NewError builds the wire error for err.
func NewError(err error) *Error {
	status, typ := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return &Error{Status: status, Type: typ, Message: msg}
}
