package opencast

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"ocingest/internal/logging"
	"ocingest/internal/services"
)

// Workflow states reported by Opencast.
const (
	StateInstantiated = "INSTANTIATED"
	StateRunning      = "RUNNING"
	StateSucceeded    = "SUCCEEDED"
)

// WorkflowState returns the current state of a workflow instance.
func (c *Client) WorkflowState(ctx context.Context, workflowID string) (string, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/workflow/instance/" + url.PathEscape(workflowID) + ".xml",
	})
	if err != nil {
		return "", err
	}
	instance, err := parseWorkflow("workflow state", resp.body)
	if err != nil {
		return "", err
	}
	return instance.State, nil
}

// WorkflowStater reports workflow states.
type WorkflowStater interface {
	WorkflowState(ctx context.Context, workflowID string) (string, error)
}

// Monitor polls a workflow until it succeeds.
type Monitor struct {
	client   WorkflowStater
	interval time.Duration
	budget   time.Duration
	logger   *slog.Logger
	after    func(time.Duration) <-chan time.Time
}

// NewMonitor returns a Monitor checking every interval for at most budget.
func NewMonitor(client WorkflowStater, interval, budget time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		client:   client,
		interval: interval,
		budget:   budget,
		logger:   logging.NewComponentLogger(logger, "workflow-monitor"),
		after:    time.After,
	}
}

// Wait sleeps one interval before every check. It returns nil once the
// workflow succeeds, an error when the workflow reaches any other terminal
// state, and a services.ErrTimeout error once the budget is spent.
func (m *Monitor) Wait(ctx context.Context, result IngestResult) error {
	var waited time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.after(m.interval):
		}
		waited += m.interval

		state, err := m.client.WorkflowState(ctx, result.WorkflowID)
		if err != nil {
			return err
		}
		switch state {
		case StateSucceeded:
			m.logger.Info("workflow succeeded",
				logging.String("workflow_id", result.WorkflowID),
				logging.String("media_package_id", result.MediaPackageID),
				logging.String(logging.FieldEventType, "workflow_succeeded"),
			)
			return nil
		case StateRunning, StateInstantiated:
			m.logger.Info("workflow in progress",
				logging.String("workflow_id", result.WorkflowID),
				logging.String("state", state),
				logging.Duration("waited", waited),
			)
		default:
			return services.Wrap(services.ErrExternalTool, "workflow", result.WorkflowID,
				fmt.Sprintf("media package %s entered state %s", result.MediaPackageID, state), nil)
		}

		if waited >= m.budget {
			return services.Wrap(services.ErrTimeout, "workflow", result.WorkflowID,
				fmt.Sprintf("still running after %s", m.budget), nil)
		}
	}
}
