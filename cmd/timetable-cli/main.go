package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

var (
	rosterPath string
	outPath    string
	format     = service.FormatCSV
	title      string
	algorithm  string
	maxTime    time.Duration
	seed       int64
	department string
	noPacing   bool

	tokenUser string
	tokenRole = string(models.RoleScheduler)
)

const pollInterval = 200 * time.Millisecond

func main() {
	log.SetFlags(log.Ltime)

	cmdRoot := &cobra.Command{
		Use:           "timetable",
		Short:         "Timetable generation tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmdGenerate := &cobra.Command{
		Use:   "generate",
		Short: "generate a timetable from a roster file and export it",
		Args:  cobra.NoArgs,
		RunE:  commandGenerate,
	}
	cmdGenerate.Flags().StringVarP(&rosterPath, "roster", "r", "", "JSON roster file (generation request body)")
	cmdGenerate.Flags().StringVarP(&outPath, "out", "o", "", "output file; stdout when empty")
	cmdGenerate.Flags().StringVarP(&format, "format", "f", format, "export format: csv, pdf or xlsx")
	cmdGenerate.Flags().StringVar(&title, "title", "", "document title")
	cmdGenerate.Flags().StringVarP(&algorithm, "algorithm", "a", "", "preset: fast, optimized or thorough")
	cmdGenerate.Flags().DurationVarP(&maxTime, "max-time", "t", 0, "wall-clock budget for the run")
	cmdGenerate.Flags().Int64Var(&seed, "seed", 0, "random seed; zero picks a fresh one")
	cmdGenerate.Flags().StringVar(&department, "department", "", "schedule only this department")
	cmdGenerate.Flags().BoolVar(&noPacing, "no-pacing", false, "run attempts back to back")
	_ = cmdGenerate.MarkFlagRequired("roster")
	cmdRoot.AddCommand(cmdGenerate)

	cmdToken := &cobra.Command{
		Use:   "token",
		Short: "issue an access token for the API",
		Args:  cobra.NoArgs,
		RunE:  commandToken,
	}
	cmdToken.Flags().StringVarP(&tokenUser, "user", "u", "", "user id; generated when empty")
	cmdToken.Flags().StringVar(&tokenRole, "role", tokenRole, "ADMIN or SCHEDULER")
	cmdRoot.AddCommand(cmdToken)

	if err := cmdRoot.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func commandGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	req, err := readRoster(rosterPath)
	if err != nil {
		return err
	}
	if algorithm != "" {
		req.Algorithm = algorithm
	}
	if maxTime > 0 {
		req.MaxTimeSeconds = int(maxTime.Round(time.Second) / time.Second)
	}
	if seed != 0 {
		req.Seed = seed
	}
	if department != "" {
		req.DepartmentID = department
	}
	req.UseStoredRoster = false

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs := service.NewRunStore(cfg.Generator.RunTTL)
	worker := service.NewGenerationWorker(runs, nil, nil, nil, logr, service.GenerationWorkerConfig{
		RunTTL:        cfg.Generator.RunTTL,
		DisablePacing: noPacing,
	})
	queue := jobs.NewQueue("cli", worker.Handle, jobs.QueueConfig{Workers: 1, Logger: logr})
	queue.Start(context.Background())
	defer queue.Stop()

	generation := service.NewGenerationService(runs, queue, nil, nil, nil, nil, nil, logr, service.GenerationConfig{
		DefaultAlgorithm:       engine.Algorithm(cfg.Generator.DefaultAlgorithm),
		MaxTime:                cfg.Generator.MaxTime,
		RunTTL:                 cfg.Generator.RunTTL,
		ExclusivePriorityRooms: cfg.Generator.ExclusivePriorityRooms,
		StartHour:              cfg.Generator.StartHour,
		EndHour:                cfg.Generator.EndHour,
		Days:                   cfg.Generator.Days,
	})

	accepted, err := generation.Start(ctx, *req, "cli")
	if err != nil {
		return err
	}
	run, err := waitForRun(ctx, generation, accepted.RunID, logr)
	if err != nil {
		return err
	}
	if run.Status == string(service.RunFailed) {
		return fmt.Errorf("run %s failed: %s", run.RunID, run.Error)
	}

	exports := service.NewExportService(nil, nil, nil, logr, service.ExportConfig{})
	rendered, err := exports.Render(*run, format, title)
	if err != nil {
		return err
	}
	if err := writeOutput(outPath, rendered.Data); err != nil {
		return err
	}

	if run.Result != nil {
		log.Printf("run %s %s: score %d, %d lessons, %d unscheduled, %d attempts",
			run.RunID, run.Status, run.Result.Score, len(run.Result.Schedule), run.Result.Unscheduled, run.Result.Attempts)
	}
	return nil
}

// waitForRun polls until the run finishes; an interrupt requests a stop and
// keeps waiting for the best result so far.
func waitForRun(ctx context.Context, generation *service.GenerationService, runID string, logr *zap.Logger) (*dto.RunResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	done := ctx.Done()
	lastAttempt := -1
	for {
		select {
		case <-done:
			done = nil
			log.Printf("stopping run %s", runID)
			if _, err := generation.Stop(context.Background(), runID); err != nil {
				logr.Debug("stop ignored", zap.Error(err))
			}
		case <-ticker.C:
		}

		run, err := generation.Get(context.Background(), runID)
		if err != nil {
			return nil, err
		}
		if run.Progress != nil && run.Progress.Attempt != lastAttempt {
			lastAttempt = run.Progress.Attempt
			log.Printf("attempt %d/%d: best score %d", run.Progress.Attempt, run.Progress.MaxAttempts, run.Progress.BestScore)
		}
		if service.RunStatus(run.Status).Finished() {
			return run, nil
		}
	}
}

func commandToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	auth := service.NewAuthService(nil, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	issued, err := auth.IssueToken(tokenUser, models.UserRole(tokenRole))
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(issued)
}

func readRoster(path string) (*dto.GenerateRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	var req dto.GenerateRequest
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return &req, nil
}

func writeOutput(path string, data []byte) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(data)
	return err
}
