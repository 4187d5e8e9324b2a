// Package workflow provides the pipeline executor: it interprets a persisted
// node sequence, threading one payload from node to node.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ragline/ragline/pkg/eventbus"
	"github.com/ragline/ragline/pkg/events"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/otelhelper"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/registry"
)

// Request carries the caller-supplied inputs for one execution. Exactly one
// of InputText or File is expected; the input node enforces it.
type Request struct {
	WorkflowID string
	InputText  string
	File       *models.UploadedFile
	SessionID  string
}

type Executor struct {
	workflows persistence.WorkflowRepository
	registry  *registry.Registry
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewExecutor(workflows persistence.WorkflowRepository, reg *registry.Registry, publisher eventbus.EventPublisher, logger *slog.Logger) *Executor {
	return &Executor{
		workflows: workflows,
		registry:  reg,
		publisher: publisher,
		logger:    logger.With("module", "workflow_executor"),
		tracer:    otel.Tracer("workflow-executor"),
	}
}

// Execute runs the workflow's node sequence strictly in order. Every node's
// output is recorded under its ID and becomes the next node's input. Any
// handler failure aborts the execution; there is no partial result.
func (e *Executor) Execute(ctx context.Context, req Request) (*models.ExecutionResult, error) {
	executionID := generateExecutionID()
	started := time.Now()

	logger := e.logger.With("workflow_id", req.WorkflowID, "execution_id", executionID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, executionID),
	)
	defer span.End()

	wf, err := e.workflows.GetByID(ctx, req.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			err = fmt.Errorf("workflow %s: %w", req.WorkflowID, persistence.ErrWorkflowNotFound)
		}

		otelhelper.SetError(span, err)

		return nil, err
	}

	sequence, err := NormalizedSequence(wf)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("workflow %s: %w", req.WorkflowID, err)
	}

	execCtx := &models.ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  wf.ID,
		InputText:   req.InputText,
		File:        req.File,
		SessionID:   req.SessionID,
		Logger:      logger,
	}

	logger.Info("starting workflow execution",
		"workflow_name", wf.Name, "nodes", len(sequence))
	e.publish(ctx, executionID, events.ExecutionStarted{
		BaseEvent: e.baseEvent(events.ExecutionStartedEvent, wf.ID, executionID),
		SessionID: req.SessionID,
	})

	results := make(map[string]models.Payload, len(sequence))

	var current models.Payload

	for _, nodeDef := range sequence {
		current, err = e.executeNode(ctx, execCtx, nodeDef, current)
		if err != nil {
			logger.Error("workflow execution failed", "node_id", nodeDef.ID, "error", err)
			otelhelper.SetError(span, err)
			e.publish(ctx, executionID, events.ExecutionFailed{
				BaseEvent: e.baseEvent(events.ExecutionFailedEvent, wf.ID, executionID),
				NodeID:    nodeDef.ID,
				Error:     err.Error(),
				Duration:  time.Since(started),
			})

			return nil, err
		}

		results[nodeDef.ID] = current
	}

	logger.Info("workflow execution completed", "duration", time.Since(started))
	e.publish(ctx, executionID, events.ExecutionFinished{
		BaseEvent: e.baseEvent(events.ExecutionFinishedEvent, wf.ID, executionID),
		NodeCount: len(sequence),
		Duration:  time.Since(started),
	})

	return &models.ExecutionResult{
		Success:     true,
		ExecutionID: executionID,
		Results:     results,
		FinalOutput: current,
	}, nil
}

func (e *Executor) executeNode(ctx context.Context, execCtx *models.ExecutionContext, nodeDef *models.WorkflowNode, input models.Payload) (models.Payload, error) {
	started := time.Now()
	nodeType := string(nodeDef.Type)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, nodeDef.ID),
		attribute.String(otelhelper.NodeTypeKey, nodeType),
	)
	defer span.End()

	logger := execCtx.Logger.With("node_id", nodeDef.ID, "node_type", nodeType)
	logger.Debug("executing node")

	node, err := e.registry.Create(ctx, nodeType, nodeDef.ID, nodeDef.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	output, err := node.Execute(ctx, execCtx.WithLogger(logger), input)
	if err != nil {
		otelhelper.SetError(span, err)
		e.publish(ctx, execCtx.ExecutionID, events.NodeFailed{
			BaseEvent: e.baseEvent(events.NodeFailedEvent, execCtx.WorkflowID, execCtx.ExecutionID),
			NodeID:    nodeDef.ID,
			NodeType:  nodeType,
			Error:     err.Error(),
			Duration:  time.Since(started),
		})

		return nil, &NodeError{NodeID: nodeDef.ID, NodeType: nodeType, Err: err}
	}

	logger.Debug("node executed", "duration", time.Since(started))
	e.publish(ctx, execCtx.ExecutionID, events.NodeFinished{
		BaseEvent: e.baseEvent(events.NodeFinishedEvent, execCtx.WorkflowID, execCtx.ExecutionID),
		NodeID:    nodeDef.ID,
		NodeType:  nodeType,
		Duration:  time.Since(started),
	})

	return output, nil
}

// publish is best effort: a broken event channel never fails an execution.
func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("failed to publish execution event",
			"event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) baseEvent(eventType events.EventType, workflowID, executionID string) events.BaseEvent {
	return events.BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

func generateExecutionID() string {
	return "exec-" + uuid.New().String()[:8]
}
