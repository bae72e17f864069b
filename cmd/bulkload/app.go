package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/bulkload"
	"github.com/poiesic/bulkload/config"
	"github.com/poiesic/bulkload/dataset"
	"github.com/poiesic/bulkload/ingestion"
	"github.com/poiesic/bulkload/logging"
	"github.com/poiesic/bulkload/storage/badger"
	"github.com/urfave/cli/v2"
)

// app holds state set up by Before and shared by the command actions.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	clientOpts []bulkload.ClientOption
}

func newApp(clientOpts ...bulkload.ClientOption) *cli.App {
	a := &app{clientOpts: clientOpts}

	checkpointDirFlag := &cli.StringFlag{
		Name:  "checkpoint-dir",
		Usage: "Directory of the checkpoint journal (overrides checkpoint.dir)",
	}

	return &cli.App{
		Name:  "bulkload",
		Usage: "Bulk row ingestion into ScyllaDB",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"BULKLOAD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set logging format (console, json)",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Load a CSV or JSON Lines file into a table",
				ArgsUsage: " ",
				Action:    a.ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Dataset file (.csv, .jsonl or .ndjson)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "keyspace",
						Aliases: []string{"k"},
						Usage:   "Target keyspace (overrides scylladb.keyspace)",
					},
					&cli.StringFlag{
						Name:     "table",
						Aliases:  []string{"t"},
						Usage:    "Target table",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Rows per batch, executed concurrently by each worker (overrides ingest.concurrency)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of workers (0 means one per CPU)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each batch",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
					},
					&cli.StringFlag{
						Name:  "policy",
						Usage: "What to do when a batch exhausts its retries (fail-fast, best-effort)",
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "Checkpoint run ID; rerunning with the same ID skips committed batches",
					},
					checkpointDirFlag,
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address, e.g. :9090",
					},
				},
			},
			{
				Name:   "insert",
				Usage:  "Insert a single row given as a JSON object",
				Action: a.insertCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "table",
						Aliases:  []string{"t"},
						Usage:    "Target table, in the configured keyspace",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "row",
						Aliases:  []string{"r"},
						Usage:    `Row as a JSON object, e.g. '{"id": 1, "title": "Alien"}'`,
						Required: true,
					},
				},
			},
			{
				Name:  "checkpoints",
				Usage: "Inspect or clear the checkpoint journal",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List runs, or the committed ranges of one run",
						Action: a.listCheckpointsCommand,
						Flags: []cli.Flag{
							checkpointDirFlag,
							&cli.StringFlag{
								Name:  "run-id",
								Usage: "Show the committed ranges of this run",
							},
						},
					},
					{
						Name:   "clear",
						Usage:  "Remove every range recorded for a run",
						Action: a.clearCheckpointsCommand,
						Flags: []cli.Flag{
							checkpointDirFlag,
							&cli.StringFlag{
								Name:     "run-id",
								Usage:    "Run to clear",
								Required: true,
							},
						},
					},
				},
			},
		},
	}
}

// setup loads the configuration and installs the logger.
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, c.App.ErrWriter)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) newClient() (*bulkload.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	opts := append([]bulkload.ClientOption{bulkload.WithClientLogger(a.logger)}, a.clientOpts...)
	return bulkload.NewClient(a.cfg, opts...)
}

func (a *app) ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	keyspace := a.cfg.ScyllaDB.Keyspace
	if c.IsSet("keyspace") {
		keyspace = c.String("keyspace")
	}
	if keyspace == "" {
		return fmt.Errorf("keyspace is required (--keyspace or scylladb.keyspace)")
	}

	if c.IsSet("concurrency") {
		a.cfg.Ingest.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("workers") {
		a.cfg.Ingest.Workers = c.Int("workers")
	}
	if c.IsSet("max-retries") {
		a.cfg.Ingest.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		a.cfg.Ingest.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("policy") {
		a.cfg.Ingest.Policy = c.String("policy")
	}
	if c.IsSet("run-id") {
		a.cfg.Checkpoint.RunID = c.String("run-id")
	}
	if c.IsSet("checkpoint-dir") {
		a.cfg.Checkpoint.Dir = c.String("checkpoint-dir")
	}
	if c.IsSet("metrics-addr") {
		a.cfg.Metrics.Address = c.String("metrics-addr")
	}

	rows, err := dataset.Load(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if a.cfg.Metrics.Address != "" {
		go func() {
			if err := client.Metrics().ListenAndServe(); err != nil {
				a.logger.Error("metrics server failed", "addr", a.cfg.Metrics.Address, "err", err)
			}
		}()
	}

	ing, err := client.NewIngester(ingestion.WithProgressWriter(c.App.ErrWriter))
	if err != nil {
		return err
	}
	defer ing.Close()

	fmt.Fprintf(c.App.ErrWriter, "File: %s (%d rows)\n", c.String("file"), len(rows))
	fmt.Fprintf(c.App.ErrWriter, "Target: %s.%s\n", keyspace, c.String("table"))
	if a.cfg.Checkpoint.Enabled() {
		fmt.Fprintf(c.App.ErrWriter, "Checkpoint run: %s (%s)\n", a.cfg.Checkpoint.RunID, a.cfg.Checkpoint.Dir)
	}
	fmt.Fprintln(c.App.ErrWriter)

	report, err := ing.BulkIngest(ctx, rows, keyspace, c.String("table"), a.cfg.Ingest.Concurrency)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return report.Err()
}

func (a *app) insertCommand(c *cli.Context) error {
	row, err := dataset.ParseRow([]byte(c.String("row")))
	if err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ing, err := client.NewIngester()
	if err != nil {
		return err
	}
	defer ing.Close()

	if err := ing.SingleIngest(c.Context, c.String("table"), row); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Inserted 1 row into %s\n", c.String("table"))
	return nil
}

func (a *app) openCheckpoints(c *cli.Context) (*badger.CheckpointRepository, error) {
	dir := a.cfg.Checkpoint.Dir
	if c.IsSet("checkpoint-dir") {
		dir = c.String("checkpoint-dir")
	}
	if dir == "" {
		return nil, fmt.Errorf("checkpoint directory is required (--checkpoint-dir or checkpoint.dir)")
	}
	return badger.OpenCheckpointRepository(dir, a.logger)
}

func (a *app) listCheckpointsCommand(c *cli.Context) error {
	repo, err := a.openCheckpoints(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := c.Context
	if runID := c.String("run-id"); runID != "" {
		ranges, err := repo.CommittedRanges(ctx, runID)
		if err != nil {
			return err
		}
		total := 0
		for _, r := range ranges {
			fmt.Fprintf(c.App.Writer, "[%d, %d)\n", r.Start, r.End)
			total += r.Len()
		}
		binding, bound, err := repo.Binding(ctx, runID)
		if err != nil {
			return err
		}
		if bound {
			fmt.Fprintf(c.App.Writer, "%d of %d rows committed in %d ranges (dataset %016x)\n",
				total, binding.Rows, len(ranges), uint64(binding.Fingerprint))
			return nil
		}
		fmt.Fprintf(c.App.Writer, "%d rows committed in %d ranges\n", total, len(ranges))
		return nil
	}

	runs, err := repo.Runs(ctx)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Fprintln(c.App.Writer, run)
	}
	return nil
}

func (a *app) clearCheckpointsCommand(c *cli.Context) error {
	repo, err := a.openCheckpoints(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.ClearRun(c.Context, c.String("run-id")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Cleared run %s\n", c.String("run-id"))
	return nil
}
