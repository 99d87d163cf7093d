// backfill-embeddings generates embeddings for facts that were saved without
// one, typically because the embedding provider was unavailable during
// pipeline processing. Facts with an empty embedding array are re-embedded in
// batches and updated in place.
//
// Usage: go run ./scripts/backfill-embeddings
//
// Requires: AI provider credentials (OPENAI_API_KEY or ANTHROPIC_API_KEY plus
// an OpenAI-compatible embedding endpoint)
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-batch-size  Number of facts to embed per provider call (default: 32)
//	-dry-run     Show how many facts need embeddings without updating (default: false)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/llm"
)

func main() {
	batchSize := flag.Int("batch-size", 32, "Number of facts to embed per provider call")
	dryRun := flag.Bool("dry-run", false, "Show how many facts need embeddings without updating")
	flag.Parse()

	if *batchSize < 1 {
		fmt.Fprintln(os.Stderr, "batch-size must be at least 1")
		os.Exit(1)
	}

	cfg, err := config.Load("backfill")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	client, err := llm.NewFromConfig(&cfg.AI, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create AI client: %v\n", err)
		os.Exit(1)
	}

	ids, contents, err := loadUnembeddedFacts(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load facts: %v\n", err)
		os.Exit(1)
	}

	if len(ids) == 0 {
		fmt.Println("All facts already have embeddings")
		return
	}

	fmt.Printf("Found %d facts without embeddings\n", len(ids))
	if *dryRun {
		return
	}

	updated := 0
	for start := 0; start < len(ids); start += *batchSize {
		end := start + *batchSize
		if end > len(ids) {
			end = len(ids)
		}

		embeddings, err := client.CreateEmbeddings(ctx, contents[start:end])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Embedding batch failed at offset %d: %v\n", start, err)
			os.Exit(1)
		}

		for i, embedding := range embeddings {
			if len(embedding) == 0 {
				continue
			}
			if _, err := conn.Exec(ctx,
				`UPDATE facts SET embedding = $1 WHERE id = $2`,
				embedding, ids[start+i],
			); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to update fact %s: %v\n", ids[start+i], err)
				os.Exit(1)
			}
			updated++
		}
		fmt.Printf("Embedded %d/%d\n", end, len(ids))
	}

	fmt.Printf("\nTotal facts updated: %d\n", updated)
}

// loadUnembeddedFacts returns the IDs and contents of facts whose embedding
// array is empty, oldest first so the backlog drains in order.
func loadUnembeddedFacts(ctx context.Context, conn *pgx.Conn) ([]uuid.UUID, []string, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, content
		FROM facts
		WHERE cardinality(embedding) = 0
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	var contents []string
	for rows.Next() {
		var id uuid.UUID
		var content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}
		ids = append(ids, id)
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return ids, contents, nil
}
