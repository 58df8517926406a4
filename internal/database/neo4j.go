package database

import (
	"context"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Neo4jDatabase struct {
	Driver neo4j.DriverWithContext
}

func NewNeo4jDatabase(ctx context.Context, uri, username, password string) (*Neo4jDatabase, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connection: %w", err)
	}

	return &Neo4jDatabase{Driver: driver}, nil
}

func (db *Neo4jDatabase) Close(ctx context.Context) error {
	return db.Driver.Close(ctx)
}

// ExecuteCypherFile runs a whole .cypher file in one write transaction, for
// seeding a road network.
func (db *Neo4jDatabase) ExecuteCypherFile(ctx context.Context, filePath string) error {
	cypher, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading cypher file: %w", err)
	}

	session := db.Driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, string(cypher), nil)
		return nil, err
	})
	return err
}
