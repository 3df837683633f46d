package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bilgisen/contentpipe/internal/app"
	"github.com/bilgisen/contentpipe/internal/config"
	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/bilgisen/contentpipe/internal/pipeline"
	"github.com/bilgisen/contentpipe/internal/sheet"
	"github.com/bilgisen/contentpipe/internal/storage"
	"github.com/bilgisen/contentpipe/internal/utils"
	"github.com/spf13/cobra"
)

var (
	publishStatus string
	siteID        string
	jobStore      string
	outputDir     string
	jobID         string
	debugMode     bool
)

var rootCmd = &cobra.Command{
	Use:   "bulk <spreadsheet>",
	Short: "Generate and publish one blog post per spreadsheet row",
	Long: `Reads a CSV or XLSX sheet, generates an article for every row with the
configured AI providers and publishes it to WordPress. Without WordPress
credentials the posts are written as HTML files. A published_links.csv
manifest is written to the output directory when the run ends.

Running the same sheet again resumes the job and skips published rows.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&publishStatus, "publish-status", "", "WordPress status for unscheduled posts: draft or publish (required)")
	rootCmd.Flags().StringVar(&siteID, "site", "", "Registered site id to publish to")
	rootCmd.Flags().StringVar(&jobStore, "store", "", "Job store: file, redis or memory (default JOB_STORE, else file)")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default OUTPUT_DIR)")
	rootCmd.Flags().StringVar(&jobID, "job-id", "", "Job id (default derived from the sheet contents)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	_ = rootCmd.MarkFlagRequired("publish-status")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Read()
	switch {
	case jobStore != "":
		cfg.JobStore = jobStore
	case os.Getenv("JOB_STORE") == "":
		cfg.JobStore = config.StoreFile
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.LogLevel
	if debugMode {
		level = logger.DebugLevel
	}
	logger.Init(logger.Config{Level: level, Output: "stderr", Pretty: true})
	log := logger.Get()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}
	rows, err := sheet.ReadFile(path)
	if err != nil {
		return err
	}
	if jobID == "" {
		jobID = utils.ContentID("bulk", data)
	}

	store, closeStore, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, err := store.GetJob(ctx, jobID)
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		job, err = pipeline.NewJob(jobID, siteID, models.PublishStatus(publishStatus), rows)
		if err != nil {
			return err
		}
		if err := store.CreateJob(ctx, job); err != nil {
			return err
		}
		log.Info().Str("job_id", job.ID).Int("posts", job.TotalPosts).Msg("Created job")
	case err != nil:
		return err
	default:
		log.Info().Str("job_id", job.ID).Int("published", job.CountByStatus(models.PostStatusPublished)).Msg("Resuming job")
	}

	p, err := app.NewPipeline(cfg, store)
	if err != nil {
		return err
	}

	runErr := p.Orchestrator.Run(ctx, job.ID)

	// Write the manifest for whatever state the job reached
	final, err := store.GetJob(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return errors.Join(runErr, err)
	}
	manifest := filepath.Join(cfg.OutputDir, storage.ManifestFile)
	if err := writeManifest(manifest, final); err != nil {
		return errors.Join(runErr, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s: %d successful, %d failed of %d\nManifest: %s\n",
		final.ID, final.Status, final.SuccessfulPosts, final.FailedPosts, final.TotalPosts, manifest)
	return runErr
}

func writeManifest(path string, job *models.BulkJob) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := storage.WriteManifest(f, job); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
