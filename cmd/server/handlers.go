package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"optionpricer/internal/api"
	"optionpricer/internal/bsm"
	"optionpricer/internal/grid"
	"optionpricer/internal/metrics"
	"optionpricer/internal/pricing"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type server struct {
	svc           *pricing.Service
	log           *logrus.Logger
	metrics       *metrics.Metrics
	maxResolution int
	historyLimit  int
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/price", s.handlePrice).Methods(http.MethodGet, http.MethodPost)
	v1.HandleFunc("/greeks", s.handleGreeks).Methods(http.MethodGet, http.MethodPost)
	v1.HandleFunc("/calculate", s.handleCalculate).Methods(http.MethodPost)
	v1.HandleFunc("/grid", s.handleGrid).Methods(http.MethodPost)
	v1.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// decodePriceRequest reads a quote and option type from the query string (GET)
// or a JSON body (POST).
func decodePriceRequest(r *http.Request) (bsm.Quote, bsm.OptionType, error) {
	var req api.PriceRequest
	if r.Method == http.MethodGet {
		if err := queryDecoder.Decode(&req.Quote, r.URL.Query()); err != nil {
			return bsm.Quote{}, "", fmt.Errorf("%w: %v", api.ErrBadRequest, err)
		}
		req.Type = bsm.OptionType(r.URL.Query().Get("type"))
	} else if err := decodeJSON(r, &req); err != nil {
		return bsm.Quote{}, "", err
	}
	t, err := bsm.ParseOptionType(string(req.Type))
	if err != nil {
		return bsm.Quote{}, "", fmt.Errorf("%w: %v", api.ErrBadRequest, err)
	}
	return req.Quote, t, nil
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q, t, err := decodePriceRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.svc.Price(r.Context(), q, t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, api.PriceResponse{Type: t, Price: p})
}

func (s *server) handleGreeks(w http.ResponseWriter, r *http.Request) {
	q, t, err := decodePriceRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.svc.Greeks(r.Context(), q, t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, api.GreeksResponse{Type: t, Greeks: g})
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req api.CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.svc.Calculate(r.Context(), req.Quote, req.Save)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, v)
}

func (s *server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var body api.GridRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req := body.Grid()
	t, err := bsm.ParseOptionType(string(req.Type))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", grid.ErrMissingParameter, err))
		return
	}
	req.Type = t
	if s.maxResolution > 0 && req.Resolution > s.maxResolution {
		s.writeError(w, r, fmt.Errorf("%w: resolution %d exceeds maximum %d", grid.ErrInvalidGridSize, req.Resolution, s.maxResolution))
		return
	}
	g, err := s.svc.GenerateGrid(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, g)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: limit must be an integer", api.ErrBadRequest))
			return
		}
		limit = n
	}
	recs, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, api.HistoryResponse{Records: recs})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", api.ErrBadRequest, maxErr.Limit)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", api.ErrBadRequest, err)
	}
	return nil
}

// internalErrorBody is sent when a response cannot be encoded.
var internalErrorBody = []byte(`{"type":"internal","message":"internal server error"}` + "\n")

// writeJSON encodes v before writing the status, so an unencodable value
// (NaN, ±Inf) turns into a 500 rather than a 200 with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(internalErrorBody)
		return fmt.Errorf("encode response: %w", err)
	}
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// respond writes v and logs a response that could not be delivered.
func (s *server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.log.WithContext(r.Context()).WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"status": status,
		}).WithError(err).Error("failed to write response")
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := api.NewError(err)
	entry := s.log.WithContext(r.Context()).WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"status": e.Status,
		"type":   e.Type,
	}).WithError(err)
	if e.Status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	s.respond(w, r, e.Status, e)
}
