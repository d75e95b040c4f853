package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"finpath/internal/domain/consent"
	"finpath/internal/interfaces/scheduler"
	"finpath/internal/shared/config"
	"finpath/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize telemetry (if enabled)
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  strconv.Itoa(cfg.Telemetry.MetricsPort),
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
		log.Printf("Telemetry enabled (service %s, metrics on :%d)", cfg.Telemetry.ServiceName, cfg.Telemetry.MetricsPort)
	}

	// Initialize scheduler first so handlers can submit jobs into it. The
	// job provider closes over deps, which is assigned below before Start.
	var deps *Dependencies
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider: func(ctx context.Context) ([]scheduler.Job, error) {
				return buildScheduledJobs(ctx, deps)
			},
		})
		if err != nil {
			return err
		}
	} else {
		log.Println("Scheduler is disabled")
	}

	// Initialize all dependencies
	if sched != nil {
		deps, err = NewDependencies(cfg, sched)
	} else {
		deps, err = NewDependencies(cfg, nil)
	}
	if err != nil {
		return err
	}
	defer deps.Close()

	if sched != nil {
		sched.Start()
		log.Printf("Scheduler started with times: %v", cfg.Scheduler.ScheduleTimes)
	}

	// Setup routes with middleware
	handler := SetupRoutes(deps, cfg)

	// Start servers
	srv, redirectSrv := StartServers(NewServerConfigFromConfig(handler, cfg))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	GracefulShutdown(srv, redirectSrv, sched, 30*time.Second)
	return nil
}

// buildScheduledJobs enumerates the work for a scheduled run: one transaction
// sync job per active consent, then one re-analysis job per goal so
// feasibility tracks the freshly synced ledger.
func buildScheduledJobs(ctx context.Context, deps *Dependencies) ([]scheduler.Job, error) {
	users, err := deps.UserRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	var jobs []scheduler.Job
	for _, u := range users {
		consents, err := deps.ConsentRepo.ListByUserID(ctx, u.ID)
		if err != nil {
			log.Printf("Skipping user %s: failed to list consents: %v", u.ID, err)
			continue
		}
		for _, c := range consents {
			if !strings.EqualFold(c.Status, consent.StatusActive) {
				continue
			}
			jobs = append(jobs, scheduler.NewConsentSyncJob(c.UserID, c.ID, deps.SyncService))
		}

		goals, err := deps.GoalService.ListGoals(ctx, u.ID)
		if err != nil {
			log.Printf("Skipping goal re-analysis for user %s: %v", u.ID, err)
			continue
		}
		for _, g := range goals {
			jobs = append(jobs, scheduler.NewGoalAnalysisJob(u.ID, g.ID, "scheduled", deps.GoalService, deps.Analyzer))
		}
	}

	log.Printf("Scheduled run: %d jobs for %d users", len(jobs), len(users))
	return jobs, nil
}
