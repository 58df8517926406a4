package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"roadnav/internal/api"
	"roadnav/internal/config"
	"roadnav/internal/database"
	"roadnav/internal/models"
	"roadnav/internal/osmload"
	"roadnav/internal/repositories"
	"roadnav/internal/roadgraph"
	"roadnav/internal/services"
)

var (
	seedFile string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Load the road network and serve the navigation API",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&seedFile, "seed", "", "cypher file executed against Neo4j before loading")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	svc, closeDB, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewServer(svc, api.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MutationRate:   cfg.Server.MutationRate,
			MutationBurst:  cfg.Server.MutationBurst,
			Logger:         logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("could not start server: %w", err)
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}

// buildService loads the graph from the configured source and connects the
// status recorder when asked to. The returned func closes the database.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services.NavigationService, func(), error) {
	closeDB := func() {}
	var (
		db          *database.Neo4jDatabase
		repo        *repositories.RoadRepository
		err         error
		g           *roadgraph.Graph
		disruptions []roadgraph.Disruption
		pois        []models.POI
	)

	if cfg.Graph.Source == config.SourceNeo4j || cfg.Neo4j.MirrorStatus {
		db, err = database.NewNeo4jDatabase(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
		if err != nil {
			return nil, nil, err
		}
		closeDB = func() {
			if err := db.Close(context.Background()); err != nil {
				logger.Warn("closing neo4j", "error", err)
			}
		}
		repo = repositories.NewRoadRepository(db.Driver, cfg.Neo4j.Database)
	}

	switch cfg.Graph.Source {
	case config.SourceNeo4j:
		if seedFile != "" {
			if err := db.ExecuteCypherFile(ctx, seedFile); err != nil {
				logger.Warn("could not seed database", "file", seedFile, "error", err)
			} else {
				logger.Info("seed data loaded", "file", seedFile)
			}
		}
		g, disruptions, err = repo.LoadGraph(ctx)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("road network loaded from neo4j", "junctions", g.NodeCount(), "edges", g.EdgeCount())
	default:
		net, err := osmload.LoadFile(ctx, cfg.Graph.OSMFile, osmload.Options{Logger: logger})
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		g = net.Graph
		pois = modelPOIs(net.POIs)
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithGrid(cfg.Graph.GridRows, cfg.Graph.GridCols),
		services.WithPOIs(pois),
	}
	if repo != nil && cfg.Neo4j.MirrorStatus {
		opts = append(opts, services.WithRecorder(repo))
	}
	svc := services.NewNavigationService(g, cfg.Routing, opts...)
	if err := svc.Restore(disruptions); err != nil {
		closeDB()
		return nil, nil, err
	}
	if len(disruptions) > 0 {
		logger.Info("stored traffic restored", "roads", len(disruptions))
	}
	return svc, closeDB, nil
}

func modelPOIs(in []osmload.POI) []models.POI {
	out := make([]models.POI, len(in))
	for i, p := range in {
		out[i] = models.POI{ID: int64(p.ID), Lat: p.Lat, Lon: p.Lon, Kind: p.Kind, Name: p.Name}
	}
	return out
}
