package scheduler

import (
	"context"
	"fmt"
	"log"

	"finpath/internal/domain/consent"
	"finpath/internal/domain/goal"
)

// ConsentSyncJob pulls transactions for a single active consent through the
// account aggregator and upserts them into the ledger.
type ConsentSyncJob struct {
	userID      string
	consentID   string
	syncService *consent.SyncService
}

// NewConsentSyncJob creates a sync job for one consent.
func NewConsentSyncJob(userID, consentID string, syncService *consent.SyncService) *ConsentSyncJob {
	return &ConsentSyncJob{
		userID:      userID,
		consentID:   consentID,
		syncService: syncService,
	}
}

// Execute runs the transaction sync for the consent.
func (j *ConsentSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting transaction sync for consent %s (user %s)", j.consentID, j.userID)

	result, err := j.syncService.SyncTransactions(ctx, j.consentID)
	if err != nil {
		log.Printf("Transaction sync failed for consent %s: %v", j.consentID, err)
		return fmt.Errorf("sync failed: %w", err)
	}

	if len(result.Errors) > 0 {
		log.Printf("Transaction sync for consent %s completed with errors: Found=%d, Upserted=%d, Rejected=%d, Errors=%d",
			j.consentID, result.TransactionsFound, result.Upserted, result.Rejected, len(result.Errors))
		// Surface as error so the run is marked for retry
		return fmt.Errorf("sync completed with %d errors", len(result.Errors))
	}

	log.Printf("Transaction sync for consent %s completed: Found=%d, Upserted=%d, Rejected=%d",
		j.consentID, result.TransactionsFound, result.Upserted, result.Rejected)

	return nil
}

func (j *ConsentSyncJob) UserID() string {
	return j.userID
}

func (j *ConsentSyncJob) Description() string {
	return fmt.Sprintf("Transaction sync for consent %s", j.consentID)
}

// GoalAnalysisJob runs the AI coach feasibility analysis for a goal and
// applies the verdict. Submitted as a one-off job after goal create/update.
type GoalAnalysisJob struct {
	userID   string
	goalID   string
	trigger  string
	service  *goal.Service
	analyzer goal.Analyzer
}

// NewGoalAnalysisJob creates an analysis job for one goal.
// trigger is "created" or "updated".
func NewGoalAnalysisJob(userID, goalID, trigger string, service *goal.Service, analyzer goal.Analyzer) *GoalAnalysisJob {
	return &GoalAnalysisJob{
		userID:   userID,
		goalID:   goalID,
		trigger:  trigger,
		service:  service,
		analyzer: analyzer,
	}
}

// Execute fetches the goal, asks the analyzer for a verdict, and stores the
// result. Analysis failures are recorded on the goal rather than retried.
func (j *GoalAnalysisJob) Execute(ctx context.Context) error {
	g, err := j.service.GetGoal(ctx, j.goalID, j.userID)
	if err != nil {
		return fmt.Errorf("failed to load goal for analysis: %w", err)
	}

	result, err := j.analyzer.AnalyzeGoal(ctx, g, j.trigger)
	if err != nil {
		log.Printf("Goal analysis failed for goal %s: %v", j.goalID, err)
		if markErr := j.service.MarkAnalysisFailed(ctx, j.goalID, err); markErr != nil {
			log.Printf("Failed to record analysis failure for goal %s: %v", j.goalID, markErr)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := j.service.ApplyAnalysis(ctx, j.goalID, result); err != nil {
		return fmt.Errorf("failed to apply analysis: %w", err)
	}

	log.Printf("Goal analysis completed for goal %s: feasible=%v risk=%s", j.goalID, result.Feasible, result.RiskLevel)
	return nil
}

func (j *GoalAnalysisJob) UserID() string {
	return j.userID
}

func (j *GoalAnalysisJob) Description() string {
	return fmt.Sprintf("Goal analysis (%s) for goal %s", j.trigger, j.goalID)
}
