package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"roadnav/internal/config"
	"roadnav/internal/database"
	"roadnav/internal/osmload"
	"roadnav/internal/repositories"
)

var (
	importOSM string

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Load an OSM file and store its road network in Neo4j",
		RunE:  runImport,
	}
)

func init() {
	importCmd.Flags().StringVar(&importOSM, "osm", "", "OSM XML or PBF file (defaults to graph.osm_file)")
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)
	ctx := cmd.Context()

	file := importOSM
	if file == "" {
		file = cfg.Graph.OSMFile
	}
	net, err := osmload.LoadFile(ctx, file, osmload.Options{Logger: logger})
	if err != nil {
		return err
	}

	db, err := database.NewNeo4jDatabase(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	junctions, roads := repositories.GraphRecords(net.Graph)
	repo := repositories.NewRoadRepository(db.Driver, cfg.Neo4j.Database)
	if err := repo.SaveNetwork(ctx, junctions, roads); err != nil {
		return err
	}
	logger.Info("road network imported", "junctions", len(junctions), "roads", len(roads))
	return nil
}
