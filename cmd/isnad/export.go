package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/engine"
	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/storage"
)

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	var (
		mongoURI string
		database string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upsert the merged stores into MongoDB",
		Long: `Export loads every merge store of the output directory and upserts its
records into the MongoDB collection of the same name, keyed by _id. Running it
again replaces the documents with the current store content.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mongo-uri") {
				cfg.Mongo.URI = mongoURI
			}
			if cmd.Flags().Changed("database") {
				cfg.Mongo.Database = database
			}

			ctx, stop := signalContext(logger, func() {})
			defer stop()

			dst, err := storage.NewMongoStorage(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
			if err != nil {
				return err
			}
			defer dst.Close()

			stores := engine.NewProcessor(cfg, nil, nil, logger).Stores()
			total, err := storage.Export(ctx, dst, stores, logger)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			fmt.Printf("\nExported %d records from %d stores to %s/%s\n", total, len(stores), cfg.Mongo.URI, cfg.Mongo.Database)
			return nil
		},
	}

	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI")
	cmd.Flags().StringVar(&database, "database", "", "MongoDB database name")

	return cmd
}
