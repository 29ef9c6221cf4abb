// Command loader ingests an arXiv papers JSON feed into the denormalized
// DynamoDB table, creating the table and its indexes when absent.
//
// Usage:
//
//	loader [--region us-west-2] <papers.json> <table-name>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"paperstore/application/ingestion"
	dynamostore "paperstore/infrastructure/persistence/dynamodb"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

func main() {
	region := flag.String("region", "us-west-2", "AWS region name")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <papers.json> <table-name>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	papersPath, tableName := flag.Arg(0), flag.Arg(1)

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	store := dynamostore.NewStore(dynamodb.NewFromConfig(awsCfg), tableName, logger)

	logger.Info("ensuring table schema",
		zap.String("table", tableName),
		zap.String("region", *region),
	)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Schema setup failed", zap.Error(err))
	}

	records, err := ingestion.LoadRecords(papersPath)
	if err != nil {
		logger.Fatal("Failed to load papers file", zap.Error(err))
	}

	stats, err := ingestion.NewPipeline(store, logger).Run(ctx, records)
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err),
			zap.Int("papersLoaded", stats.Papers),
			zap.Int("itemsWritten", stats.TotalItems),
		)
	}

	printBreakdown(stats)
}

// printBreakdown reports fan-out statistics in a human-readable form.
func printBreakdown(stats *ingestion.Stats) {
	fmt.Printf("Loaded %d papers (%d skipped)\n", stats.Papers, stats.Skipped)
	fmt.Printf("Created %d DynamoDB items (denormalized)\n", stats.TotalItems)
	fmt.Printf("Denormalization factor: %.1fx\n\n", stats.Factor())
	fmt.Println("Storage breakdown:")

	perPaper := func(n int) float64 {
		if stats.Papers == 0 {
			return 0
		}
		return float64(n) / float64(stats.Papers)
	}
	fmt.Printf("  - Category items: %d (%.1f per paper avg)\n", stats.CategoryItems, perPaper(stats.CategoryItems))
	fmt.Printf("  - Author items:   %d (%.1f per paper avg)\n", stats.AuthorItems, perPaper(stats.AuthorItems))
	fmt.Printf("  - Keyword items:  %d (%.1f per paper avg)\n", stats.KeywordItems, perPaper(stats.KeywordItems))
	fmt.Printf("  - Paper ID items: %d (%.1f per paper avg)\n", stats.PaperItems, perPaper(stats.PaperItems))
}
