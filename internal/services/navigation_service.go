package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"roadnav/internal/metrics"
	"roadnav/internal/models"
	"roadnav/internal/roadgraph"
	"roadnav/internal/routing"
	"roadnav/internal/spatial"
)

var (
	// ErrUnknownJunction is returned when a request names a junction that is
	// not in the graph.
	ErrUnknownJunction = errors.New("unknown junction")

	// ErrRouteNotFound is returned for an unknown route session id.
	ErrRouteNotFound = errors.New("route not found")

	// ErrNoRoadNearby is returned when no road is within reach of a point.
	ErrNoRoadNearby = errors.New("no road nearby")
)

// StatusRecorder persists road status changes. The Neo4j road repository
// implements it.
type StatusRecorder interface {
	SaveRoadStatus(ctx context.Context, from, to roadgraph.NodeID, status roadgraph.EdgeStatus, multiplier float64) error
	ResetRoadStatus(ctx context.Context) error
}

// NavigationService owns the road graph, its traffic overlay and the routes
// handed out to clients. Every call holds the service lock, so planning and
// traffic changes never overlap.
type NavigationService struct {
	mu       sync.Mutex
	graph    *roadgraph.Graph
	overlay  *roadgraph.Overlay
	grid     *spatial.Grid
	planner  *routing.Planner
	cfg      routing.Config
	routes   map[string]*session
	recorder StatusRecorder
	pois     []models.POI
	log      *slog.Logger
}

type session struct {
	id    string
	from  roadgraph.NodeID
	to    roadgraph.NodeID
	route routing.Route
}

type Option func(*NavigationService)

// WithRecorder mirrors traffic changes to r.
func WithRecorder(r StatusRecorder) Option {
	return func(s *NavigationService) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *NavigationService) { s.log = l }
}

// WithPOIs attaches points of interest found while loading the map.
func WithPOIs(pois []models.POI) Option {
	return func(s *NavigationService) { s.pois = pois }
}

// WithGrid sets the spatial index dimensions.
func WithGrid(rows, cols int) Option {
	return func(s *NavigationService) { s.grid = spatial.Build(s.graph, rows, cols) }
}

func NewNavigationService(g *roadgraph.Graph, cfg routing.Config, opts ...Option) *NavigationService {
	s := &NavigationService{
		graph:   g,
		overlay: roadgraph.NewOverlay(g, cfg.JamFactor),
		planner: routing.NewPlanner(g, cfg),
		cfg:     cfg,
		routes:  make(map[string]*session),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.grid == nil {
		s.grid = spatial.Build(g, spatial.DefaultRows, spatial.DefaultCols)
	}
	return s
}

// Restore replays stored disruptions without recording them again.
func (s *NavigationService) Restore(disruptions []roadgraph.Disruption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range disruptions {
		var err error
		switch d.Status {
		case roadgraph.StatusBlocked:
			err = s.overlay.BlockRoad(d.From, d.To)
		case roadgraph.StatusJammed:
			err = s.overlay.ApplyJam(d.From, d.To, d.Multiplier)
		}
		if err != nil {
			return fmt.Errorf("restore %s %s-%s: %w", d.Status, d.From, d.To, err)
		}
	}
	metrics.Disruptions.Set(float64(s.overlay.Len()))
	return nil
}

// PlanRoute plans from one junction to another and keeps the route so it
// can be rerouted later. An unreachable destination is not an error: the
// returned route is marked blocked.
func (s *NavigationService) PlanRoute(ctx context.Context, from, to roadgraph.NodeID) (models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []roadgraph.NodeID{from, to} {
		if !s.graph.HasNode(id) {
			return models.Route{}, fmt.Errorf("junction %q: %w", id, ErrUnknownJunction)
		}
	}

	start := time.Now()
	res := s.planner.Search(from, to)
	metrics.PlanDuration.Observe(time.Since(start).Seconds())
	metrics.SearchExpansions.Observe(float64(res.Stats.Expanded))
	metrics.StaleEntries.Add(float64(res.Stats.Stale))
	switch {
	case res.Found():
		metrics.PlansTotal.WithLabelValues("found").Inc()
	case res.Truncated:
		metrics.PlansTotal.WithLabelValues("truncated").Inc()
	default:
		metrics.PlansTotal.WithLabelValues("unreachable").Inc()
	}

	sess := &session{
		id:    uuid.NewString(),
		from:  from,
		to:    to,
		route: routing.NewRoute(s.graph, res),
	}
	s.routes[sess.id] = sess
	metrics.ActiveRoutes.Set(float64(len(s.routes)))

	s.log.InfoContext(ctx, "route planned",
		"id", sess.id,
		"from", from,
		"to", to,
		"found", res.Found(),
		"cost", res.Cost,
		"expanded", res.Stats.Expanded,
	)
	out := s.toModel(sess)
	out.Expanded = res.Stats.Expanded
	return out, nil
}

// GetRoute returns a stored route.
func (s *NavigationService) GetRoute(id string) (models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.routes[id]
	if !ok {
		return models.Route{}, fmt.Errorf("route %s: %w", id, ErrRouteNotFound)
	}
	return s.toModel(sess), nil
}

// DeleteRoute forgets a stored route.
func (s *NavigationService) DeleteRoute(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[id]; !ok {
		return fmt.Errorf("route %s: %w", id, ErrRouteNotFound)
	}
	delete(s.routes, id)
	metrics.ActiveRoutes.Set(float64(len(s.routes)))
	return nil
}

// Reroute replans a stored route from the end of segment traversed. When no
// passage remains the stored route is replaced by the driven prefix and the
// error wraps routing.ErrNoPassage.
func (s *NavigationService) Reroute(ctx context.Context, id string, traversed int) (models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.routes[id]
	if !ok {
		return models.Route{}, fmt.Errorf("route %s: %w", id, ErrRouteNotFound)
	}

	route, err := routing.Reroute(s.planner, sess.route, traversed)
	switch {
	case errors.Is(err, routing.ErrInvalidProgress):
		metrics.ReroutesTotal.WithLabelValues("invalid").Inc()
		return models.Route{}, err
	case errors.Is(err, routing.ErrNoPassage):
		metrics.ReroutesTotal.WithLabelValues("no_passage").Inc()
		sess.route = route
		s.log.WarnContext(ctx, "no passage", "id", id, "at", route.Path[len(route.Path)-1], "to", sess.to)
		return s.toModel(sess), err
	case err != nil:
		return models.Route{}, err
	}

	metrics.ReroutesTotal.WithLabelValues("spliced").Inc()
	sess.route = route
	s.log.InfoContext(ctx, "route rerouted", "id", id, "traversed", traversed, "cost", route.Cost)
	return s.toModel(sess), nil
}

// ApplyJam jams a road and returns the ids of stored routes that drive it.
func (s *NavigationService) ApplyJam(ctx context.Context, from, to roadgraph.NodeID, factor float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.overlay.ApplyJam(from, to, factor); err != nil {
		return nil, err
	}
	if factor == 0 {
		factor = s.overlay.JamFactor()
	}
	s.afterMutation(ctx, "jam", from, to, roadgraph.StatusJammed, factor)
	return s.routesCrossing(from, to), nil
}

// BlockRoad closes a road and returns the ids of stored routes that drive it.
func (s *NavigationService) BlockRoad(ctx context.Context, from, to roadgraph.NodeID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.overlay.BlockRoad(from, to); err != nil {
		return nil, err
	}
	s.afterMutation(ctx, "block", from, to, roadgraph.StatusBlocked, math.Inf(1))
	return s.routesCrossing(from, to), nil
}

// OpenRoad restores a single road.
func (s *NavigationService) OpenRoad(ctx context.Context, from, to roadgraph.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.overlay.ClearRoad(from, to); err != nil {
		return err
	}
	s.afterMutation(ctx, "open", from, to, roadgraph.StatusNormal, 1)
	return nil
}

// ResetTraffic restores every road to its base weight.
func (s *NavigationService) ResetTraffic(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overlay.ResetAll()
	metrics.TrafficMutations.WithLabelValues("reset").Inc()
	metrics.Disruptions.Set(0)
	s.log.InfoContext(ctx, "traffic reset")
	if s.recorder != nil {
		if err := s.recorder.ResetRoadStatus(ctx); err != nil {
			metrics.RecorderErrors.Inc()
			s.log.ErrorContext(ctx, "could not persist traffic reset", "error", err)
		}
	}
}

func (s *NavigationService) afterMutation(ctx context.Context, kind string, from, to roadgraph.NodeID, status roadgraph.EdgeStatus, multiplier float64) {
	metrics.TrafficMutations.WithLabelValues(kind).Inc()
	metrics.Disruptions.Set(float64(s.overlay.Len()))
	s.log.InfoContext(ctx, "traffic changed", "kind", kind, "from", from, "to", to)
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveRoadStatus(ctx, from, to, status, multiplier); err != nil {
		metrics.RecorderErrors.Inc()
		s.log.ErrorContext(ctx, "could not persist road status", "kind", kind, "from", from, "to", to, "error", err)
	}
}

func (s *NavigationService) routesCrossing(from, to roadgraph.NodeID) []string {
	ids := []string{}
	for id, sess := range s.routes {
		if sess.route.Crosses(from, to) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// POIs returns the points of interest, optionally filtered by kind.
func (s *NavigationService) POIs(kind string) []models.POI {
	out := []models.POI{}
	for _, p := range s.pois {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Disruptions lists the roads currently jammed or blocked.
func (s *NavigationService) Disruptions() []roadgraph.Disruption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay.Affected()
}

// NearestRoad returns the road closest to a coordinate and the junction of
// that road nearest to it.
func (s *NavigationService) NearestRoad(lat, lon, maxMeters float64) (spatial.EdgeRef, roadgraph.NodeID, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, dist, ok := s.grid.NearestEdge(s.graph, lat, lon, maxMeters)
	if !ok {
		return spatial.EdgeRef{}, "", 0, fmt.Errorf("%.6f,%.6f: %w", lat, lon, ErrNoRoadNearby)
	}
	snap := ref.From
	if id, _, ok := s.grid.NearestNode(s.graph, lat, lon, 0); ok && (id == ref.From || id == ref.To) {
		snap = id
	}
	return ref, snap, dist, nil
}

// SearchStreet returns the junctions on streets with the given name.
func (s *NavigationService) SearchStreet(name string) []roadgraph.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.LookupStreet(name)
}

// Reachable splits junctions by whether they can be reached from start
// under current traffic.
func (s *NavigationService) Reachable(start roadgraph.NodeID) ([]roadgraph.NodeID, []roadgraph.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.graph.HasNode(start) {
		return nil, nil, fmt.Errorf("junction %q: %w", start, ErrUnknownJunction)
	}
	acc, inacc := routing.Reachable(s.graph, start)
	return acc, inacc, nil
}

// ExportDirections writes the directions of a stored route.
func (s *NavigationService) ExportDirections(id string, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.routes[id]
	if !ok {
		return fmt.Errorf("route %s: %w", id, ErrRouteNotFound)
	}
	return routing.WriteDirections(w, sess.route.Instructions)
}

// Area returns the roads with at least one junction inside a bounding box,
// together with their junctions.
func (s *NavigationService) Area(minLat, maxLat, minLon, maxLon float64) models.GraphData {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := models.GraphData{Nodes: []models.Node{}, Links: []models.Link{}}
	seen := make(map[roadgraph.NodeID]bool)
	addNode := func(id roadgraph.NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		if n, ok := s.graph.Node(id); ok {
			data.Nodes = append(data.Nodes, models.Node{ID: string(id), Lat: n.Lat, Lon: n.Lon})
		}
	}
	inside := func(id roadgraph.NodeID) bool {
		n, ok := s.graph.Node(id)
		return ok && n.Lat >= minLat && n.Lat <= maxLat && n.Lon >= minLon && n.Lon <= maxLon
	}
	for _, ref := range s.grid.QueryBBox(minLat, maxLat, minLon, maxLon) {
		if !inside(ref.From) && !inside(ref.To) {
			continue
		}
		e, ok := s.graph.FindEdge(ref.From, ref.To)
		if !ok {
			continue
		}
		addNode(ref.From)
		addNode(ref.To)
		link := models.Link{
			Source:   string(ref.From),
			Target:   string(ref.To),
			Name:     e.Name(),
			Class:    string(e.Class()),
			Status:   e.Status().String(),
			LengthM:  e.BaseWeight(),
			Passable: e.Passable(),
		}
		if e.Status() == roadgraph.StatusJammed {
			link.Multiplier = e.Multiplier()
		}
		data.Links = append(data.Links, link)
	}
	return data
}

func (s *NavigationService) toModel(sess *session) models.Route {
	r := sess.route
	out := models.Route{
		ID:           sess.id,
		From:         string(sess.from),
		To:           string(sess.to),
		Path:         make([]string, len(r.Path)),
		Legs:         r.Legs,
		Instructions: make([]models.Instruction, len(r.Instructions)),
		Blocked:      r.Blocked,
	}
	for i, id := range r.Path {
		out.Path[i] = string(id)
	}
	for i, in := range r.Instructions {
		out.Instructions[i] = models.Instruction{
			Kind:      string(in.Kind),
			Road:      in.Road,
			DistanceM: in.DistanceM,
			Maneuver:  string(in.Maneuver),
			Text:      in.Text(),
		}
	}
	if out.Legs == nil {
		out.Legs = []float64{}
	}
	if !math.IsInf(r.Cost, 0) && !math.IsNaN(r.Cost) {
		cost := r.Cost
		out.Cost = &cost
	}
	if !r.Blocked {
		if eta, err := routing.EstimateTravelTime(s.graph, r.Path, s.cfg); err == nil {
			secs := eta.Seconds()
			out.ETASeconds = &secs
		}
		out.Polyline = routing.EncodePolyline(s.graph, r.Path)
	}
	return out
}
