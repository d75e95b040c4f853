// Package coach talks to the AI coach backend. The coach owns all model
// prompting and reasoning; this client only ships goal facts out and consumes
// the structured verdict that comes back.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"finpath/internal/domain/goal"
)

const (
	defaultTimeout = 120 * time.Second // model-backed analysis can be slow
	analyzePath    = "/analyze-goal"
	chatPath       = "/chat"
)

// Client handles communication with the AI coach API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Ensure Client implements the domain analyzer contract
var _ goal.Analyzer = (*Client)(nil)

// NewClient creates a new coach API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// analyzeRequest is the payload sent for goal feasibility analysis.
type analyzeRequest struct {
	GoalID              string  `json:"goal_id"`
	UserID              string  `json:"user_id"`
	Title               string  `json:"title"`
	Description         string  `json:"description,omitempty"`
	TargetAmount        float64 `json:"target_amount"`
	CurrentAmount       float64 `json:"current_amount"`
	DurationMonths      *int    `json:"duration_months,omitempty"`
	Priority            string  `json:"priority"`
	Category            string  `json:"category,omitempty"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	Trigger             string  `json:"trigger"` // "created" or "updated"
}

// analyzeResponse mirrors the coach's verdict document.
type analyzeResponse struct {
	Feasible            bool     `json:"feasible"`
	RiskLevel           string   `json:"risk_level"`
	CompletionMonths    int      `json:"completion_months"`
	MonthlyContribution float64  `json:"monthly_contribution"`
	Insights            string   `json:"ai_insights"`
	Recommendations     []string `json:"recommendations"`
}

// AnalyzeGoal submits a goal for feasibility analysis and returns the coach's
// structured verdict.
func (c *Client) AnalyzeGoal(ctx context.Context, g *goal.Goal, trigger string) (*goal.AnalysisResult, error) {
	payload := analyzeRequest{
		GoalID:              g.ID,
		UserID:              g.UserID,
		Title:               g.Title,
		Description:         g.Description,
		TargetAmount:        g.TargetAmount,
		CurrentAmount:       g.CurrentAmount,
		DurationMonths:      g.DurationMonths,
		Priority:            string(g.Priority),
		Category:            g.Category,
		MonthlyContribution: g.MonthlyContribution,
		Trigger:             trigger,
	}

	var resp analyzeResponse
	if err := c.post(ctx, analyzePath, payload, &resp); err != nil {
		return nil, fmt.Errorf("goal analysis failed: %w", err)
	}

	return &goal.AnalysisResult{
		Feasible:            resp.Feasible,
		RiskLevel:           resp.RiskLevel,
		CompletionMonths:    resp.CompletionMonths,
		MonthlyContribution: resp.MonthlyContribution,
		Insights:            resp.Insights,
		Recommendations:     resp.Recommendations,
	}, nil
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat forwards a free-form user message to the coach and returns its reply
// verbatim.
func (c *Client) Chat(ctx context.Context, userID, message string) (string, error) {
	var resp chatResponse
	if err := c.post(ctx, chatPath, chatRequest{UserID: userID, Message: message}, &resp); err != nil {
		return "", fmt.Errorf("coach chat failed: %w", err)
	}
	return resp.Response, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("coach API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
