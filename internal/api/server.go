// Package api exposes the navigation service over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"roadnav/internal/models"
	"roadnav/internal/roadgraph"
	"roadnav/internal/routing"
	"roadnav/internal/services"
)

const maxBodyBytes = 1 << 16

type Options struct {
	AllowedOrigins []string
	// MutationRate is the number of traffic changes allowed per second;
	// zero disables the limit.
	MutationRate  float64
	MutationBurst int
	Logger        *slog.Logger
}

type Server struct {
	svc      *services.NavigationService
	log      *slog.Logger
	validate *validator.Validate
	limiter  *rate.Limiter
	origins  []string
}

func NewServer(svc *services.NavigationService, opts Options) *Server {
	s := &Server{
		svc:      svc,
		log:      opts.Logger,
		validate: validator.New(),
		origins:  opts.AllowedOrigins,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MutationRate > 0 {
		burst := opts.MutationBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.MutationRate), burst)
	}
	return s
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/route", s.planRoute).Methods(http.MethodGet)
	a.HandleFunc("/route/{id}", s.getRoute).Methods(http.MethodGet)
	a.HandleFunc("/route/{id}", s.deleteRoute).Methods(http.MethodDelete)
	a.HandleFunc("/route/{id}/reroute", s.reroute).Methods(http.MethodPost)
	a.HandleFunc("/route/{id}/export", s.exportRoute).Methods(http.MethodGet)
	a.HandleFunc("/traffic", s.disruptions).Methods(http.MethodGet)
	a.HandleFunc("/nearest", s.nearest).Methods(http.MethodGet)
	a.HandleFunc("/streets", s.streets).Methods(http.MethodGet)
	a.HandleFunc("/reachable", s.reachable).Methods(http.MethodGet)
	a.HandleFunc("/graph", s.area).Methods(http.MethodGet)
	a.HandleFunc("/pois", s.pois).Methods(http.MethodGet)

	t := a.PathPrefix("/traffic").Subrouter()
	t.Use(mux.MiddlewareFunc(RateLimit(s.limiter)))
	t.HandleFunc("/jam", s.jam).Methods(http.MethodPost)
	t.HandleFunc("/block", s.block).Methods(http.MethodPost)
	t.HandleFunc("/open", s.open).Methods(http.MethodPost)
	t.HandleFunc("/reset", s.reset).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return Chain(r, Recover(s.log), Logger(s.log), c.Handler)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) planRoute(w http.ResponseWriter, r *http.Request) {
	req := models.RoadRequest{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "parameters 'from' and 'to' are required")
		return
	}
	route, err := s.svc.PlanRoute(r.Context(), roadgraph.NodeID(req.From), roadgraph.NodeID(req.To))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	route, err := s.svc.GetRoute(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteRoute(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reroute(w http.ResponseWriter, r *http.Request) {
	var req models.RerouteRequest
	if !s.decode(w, r, &req) {
		return
	}
	route, err := s.svc.Reroute(r.Context(), mux.Vars(r)["id"], *req.Traversed)
	if err != nil && !errors.Is(err, routing.ErrNoPassage) {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) exportRoute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var buf bytes.Buffer
	if err := s.svc.ExportDirections(id, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "route-"+id+".txt"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type disruption struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Status     string  `json:"status"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

func (s *Server) disruptions(w http.ResponseWriter, _ *http.Request) {
	list := s.svc.Disruptions()
	out := make([]disruption, len(list))
	for i, d := range list {
		out[i] = disruption{From: string(d.From), To: string(d.To), Status: d.Status.String()}
		if d.Status == roadgraph.StatusJammed {
			out[i].Multiplier = d.Multiplier
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) jam(w http.ResponseWriter, r *http.Request) {
	var req models.JamRequest
	if !s.decode(w, r, &req) {
		return
	}
	ids, err := s.svc.ApplyJam(r.Context(), roadgraph.NodeID(req.From), roadgraph.NodeID(req.To), req.Factor)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TrafficChange{
		From: req.From, To: req.To, Status: roadgraph.StatusJammed.String(), AffectedRoutes: ids,
	})
}

func (s *Server) block(w http.ResponseWriter, r *http.Request) {
	var req models.RoadRequest
	if !s.decode(w, r, &req) {
		return
	}
	ids, err := s.svc.BlockRoad(r.Context(), roadgraph.NodeID(req.From), roadgraph.NodeID(req.To))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TrafficChange{
		From: req.From, To: req.To, Status: roadgraph.StatusBlocked.String(), AffectedRoutes: ids,
	})
}

func (s *Server) open(w http.ResponseWriter, r *http.Request) {
	var req models.RoadRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.OpenRoad(r.Context(), roadgraph.NodeID(req.From), roadgraph.NodeID(req.To)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TrafficChange{
		From: req.From, To: req.To, Status: roadgraph.StatusNormal.String(), AffectedRoutes: []string{},
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.svc.ResetTraffic(r.Context())
	writeJSON(w, http.StatusOK, models.TrafficChange{Status: roadgraph.StatusNormal.String(), AffectedRoutes: []string{}})
}

func (s *Server) nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "parameters 'lat' and 'lon' must be valid coordinates")
		return
	}
	maxMeters := 0.0
	if v := q.Get("max"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(m) || m < 0 {
			writeError(w, http.StatusBadRequest, "parameter 'max' must be a non-negative distance in meters")
			return
		}
		maxMeters = m
	}

	ref, snap, dist, err := s.svc.NearestRoad(lat, lon, maxMeters)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":       ref.From,
		"to":         ref.To,
		"junction":   snap,
		"distance_m": dist,
	})
}

func (s *Server) streets(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "parameter 'name' is required")
		return
	}
	ids := s.svc.SearchStreet(name)
	if ids == nil {
		ids = []roadgraph.NodeID{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "junctions": ids})
}

func (s *Server) reachable(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		writeError(w, http.StatusBadRequest, "parameter 'from' is required")
		return
	}
	acc, inacc, err := s.svc.Reachable(roadgraph.NodeID(from))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessible": acc, "inaccessible": inacc})
}

// area expects bbox=minLat,minLon,maxLat,maxLon.
func (s *Server) area(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Query().Get("bbox"), ",")
	if len(parts) != 4 {
		writeError(w, http.StatusBadRequest, "parameter 'bbox' must be minLat,minLon,maxLat,maxLon")
		return
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			writeError(w, http.StatusBadRequest, "parameter 'bbox' must be minLat,minLon,maxLat,maxLon")
			return
		}
		v[i] = f
	}
	writeJSON(w, http.StatusOK, s.svc.Area(v[0], v[2], v[1], v[3]))
}

func (s *Server) pois(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.POIs(r.URL.Query().Get("kind")))
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownJunction),
		errors.Is(err, services.ErrRouteNotFound),
		errors.Is(err, services.ErrNoRoadNearby),
		errors.Is(err, roadgraph.ErrEdgeNotFound):
		return http.StatusNotFound
	case errors.Is(err, roadgraph.ErrInvalidFactor),
		errors.Is(err, routing.ErrInvalidProgress):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "time": time.Now().UTC().Format(time.RFC3339)})
}
