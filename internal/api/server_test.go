package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadnav/internal/models"
	"roadnav/internal/roadgraph"
	"roadnav/internal/routing"
	"roadnav/internal/services"
)

func square(t *testing.T) *roadgraph.Graph {
	t.Helper()
	const d = 0.00005
	g := roadgraph.New()
	require.NoError(t, g.AddNode("A", 0, 0))
	require.NoError(t, g.AddNode("B", 0, d))
	require.NoError(t, g.AddNode("C", d, d))
	require.NoError(t, g.AddNode("D", d, 0))
	require.NoError(t, g.AddRoad("A", "B", 10, roadgraph.ClassResidential, "South Street", false))
	require.NoError(t, g.AddRoad("B", "C", 10, roadgraph.ClassResidential, "East Street", false))
	require.NoError(t, g.AddRoad("C", "D", 10, roadgraph.ClassResidential, "North Street", false))
	require.NoError(t, g.AddRoad("D", "A", 10, roadgraph.ClassResidential, "West Street", false))
	return g
}

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	svc := services.NewNavigationService(square(t), routing.DefaultConfig(),
		services.WithPOIs([]models.POI{{ID: 6, Kind: "cafe", Name: "Bean"}}))
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	return NewServer(svc, opts).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, Options{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouteLifecycle(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/api/route?from=A&to=C", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	route := decodeBody[models.Route](t, rec)
	require.Len(t, route.Path, 3)
	require.NotNil(t, route.Cost)
	assert.Equal(t, 40.0, *route.Cost)

	rec = do(t, h, http.MethodGet, "/api/route/"+route.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, route.Path, decodeBody[models.Route](t, rec).Path)

	rec = do(t, h, http.MethodPost, "/api/traffic/block",
		`{"from":"A","to":"`+route.Path[1]+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	change := decodeBody[models.TrafficChange](t, rec)
	assert.Equal(t, "blocked", change.Status)
	assert.Equal(t, []string{route.ID}, change.AffectedRoutes)

	rec = do(t, h, http.MethodPost, "/api/route/"+route.ID+"/reroute", `{"traversed":-1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rerouted := decodeBody[models.Route](t, rec)
	assert.NotEqual(t, route.Path[1], rerouted.Path[1])
	assert.False(t, rerouted.Blocked)

	rec = do(t, h, http.MethodGet, "/api/route/"+route.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "route-"+route.ID+".txt")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ROUTE DIRECTIONS\n"))

	rec = do(t, h, http.MethodDelete, "/api/route/"+route.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/route/"+route.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanRoute_BadRequests(t *testing.T) {
	h := newTestServer(t, Options{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing to", "/api/route?from=A", http.StatusBadRequest},
		{"unknown junction", "/api/route?from=A&to=Z", http.StatusNotFound},
		{"same junction", "/api/route?from=A&to=A", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestReroute_NoPassage(t *testing.T) {
	h := newTestServer(t, Options{})
	route := decodeBody[models.Route](t, do(t, h, http.MethodGet, "/api/route?from=A&to=C", ""))

	for _, body := range []string{`{"from":"B","to":"C"}`, `{"from":"D","to":"C"}`} {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/traffic/block", body).Code)
	}

	rec := do(t, h, http.MethodPost, "/api/route/"+route.ID+"/reroute", `{"traversed":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[models.Route](t, rec)
	assert.True(t, out.Blocked)
	assert.Nil(t, out.Cost)
	require.Len(t, out.Instructions, 1)
	assert.Equal(t, "Route blocked, no passage.", out.Instructions[0].Text)
}

func TestReroute_BadRequests(t *testing.T) {
	h := newTestServer(t, Options{})
	route := decodeBody[models.Route](t, do(t, h, http.MethodGet, "/api/route?from=A&to=C", ""))

	tests := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"missing traversed", route.ID, `{}`, http.StatusBadRequest},
		{"below start", route.ID, `{"traversed":-2}`, http.StatusBadRequest},
		{"past the end", route.ID, `{"traversed":7}`, http.StatusBadRequest},
		{"unknown field", route.ID, `{"traversed":0,"speed":3}`, http.StatusBadRequest},
		{"unknown route", "nope", `{"traversed":0}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/route/"+tt.id+"/reroute", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTraffic(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/traffic/jam", `{"from":"A","to":"B","factor":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/traffic/block", `{"from":"C","to":"D"}`).Code)

	rec = do(t, h, http.MethodGet, "/api/traffic", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"from":"A","to":"B","status":"jammed","multiplier":3},
		{"from":"C","to":"D","status":"blocked"}
	]`, rec.Body.String())

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/traffic/open", `{"from":"D","to":"C"}`).Code)
	rec = do(t, h, http.MethodGet, "/api/traffic", "")
	assert.JSONEq(t, `[{"from":"A","to":"B","status":"jammed","multiplier":3}]`, rec.Body.String())

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/traffic/reset", "").Code)
	rec = do(t, h, http.MethodGet, "/api/traffic", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTraffic_BadRequests(t *testing.T) {
	h := newTestServer(t, Options{})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"malformed", "/api/traffic/block", `{"from":`, http.StatusBadRequest},
		{"missing to", "/api/traffic/block", `{"from":"A"}`, http.StatusBadRequest},
		{"same endpoints", "/api/traffic/block", `{"from":"A","to":"A"}`, http.StatusBadRequest},
		{"no such road", "/api/traffic/block", `{"from":"A","to":"C"}`, http.StatusNotFound},
		{"negative factor", "/api/traffic/jam", `{"from":"A","to":"B","factor":-1}`, http.StatusBadRequest},
		{"huge factor", "/api/traffic/jam", `{"from":"A","to":"B","factor":5000}`, http.StatusBadRequest},
		{"open unknown", "/api/traffic/open", `{"from":"A","to":"Z"}`, http.StatusNotFound},
		{"wrong method", "/api/traffic/jam", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodPost
			if tt.body == "" {
				method = http.MethodGet
			}
			rec := do(t, h, method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTraffic_RateLimited(t *testing.T) {
	h := newTestServer(t, Options{MutationRate: 0.001, MutationBurst: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/traffic/reset", "").Code)
	}
	rec := do(t, h, http.MethodPost, "/api/traffic/reset", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/traffic", "").Code, "reads are not limited")
}

func TestLookups(t *testing.T) {
	h := newTestServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/api/nearest?lat=0&lon=0.00002", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	near := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "A", near["junction"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/nearest?lat=x&lon=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/nearest?lat=0&lon=0&max=-1", "").Code)
	for _, q := range []string{"lat=NaN&lon=0", "lat=0&lon=nan", "lat=Inf&lon=0", "lat=0&lon=0&max=NaN"} {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/nearest?"+q, "").Code, q)
	}
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/nearest?lat=10&lon=10&max=5", "").Code)

	rec = do(t, h, http.MethodGet, "/api/streets?name=south%20street", "")
	require.Equal(t, http.StatusOK, rec.Code)
	streets := decodeBody[struct {
		Junctions []string `json:"junctions"`
	}](t, rec)
	assert.ElementsMatch(t, []string{"A", "B"}, streets.Junctions)

	rec = do(t, h, http.MethodGet, "/api/streets?name=nowhere", "")
	assert.JSONEq(t, `{"name":"nowhere","junctions":[]}`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/streets", "").Code)

	rec = do(t, h, http.MethodGet, "/api/reachable?from=A", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accessible":["A","B","C","D"],"inaccessible":[]}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/reachable?from=Z", "").Code)

	rec = do(t, h, http.MethodGet, "/api/graph?bbox=-1,-1,1,1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody[models.GraphData](t, rec)
	assert.Len(t, data.Nodes, 4)
	assert.Len(t, data.Links, 8)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/graph?bbox=1,2,3", "").Code)
	for _, bbox := range []string{"NaN,-1,1,1", "-1,-1,1,Inf"} {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/graph?bbox="+bbox, "").Code, bbox)
	}

	rec = do(t, h, http.MethodGet, "/api/pois?kind=cafe", "")
	assert.JSONEq(t, `[{"id":6,"lat":0,"lon":0,"kind":"cafe","name":"Bean"}]`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, Options{})
	do(t, h, http.MethodGet, "/api/route?from=A&to=B", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roadnav_plans_total")
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, Options{AllowedOrigins: []string{"https://map.example"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://map.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://map.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	rec := do(t, newTestServer(t, Options{}), http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"not found"`)
}
