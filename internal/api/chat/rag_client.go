package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vivutravel/vivu-backend/app/observability/metrics"
	"github.com/vivutravel/vivu-backend/config"
	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

// RAGClient relays completions to the external retrieval service and
// pushes destination documents into its index. One HTTP attempt gets
// the configured per-attempt timeout; the ladder in Complete retries
// quota-style rejections on progressively cheaper models.
type RAGClient struct {
	logger  *slog.Logger
	cfg     config.RAGConfig
	client  *http.Client
	metrics *metrics.AppMetrics
}

func NewRAGClient(cfg config.RAGConfig, m *metrics.AppMetrics, logger *slog.Logger) *RAGClient {
	return &RAGClient{
		logger:  logger,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}
}

// upstreamResponse is the retrieval service's completion body. The
// references list carries the destination ids the answer was grounded
// on and may repeat ids.
type upstreamResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	References []uuid.UUID `json:"references"`
}

// retryable reports whether the rejection looks like a quota or model
// availability problem rather than a bad request we would just repeat.
func retryable(e *api.UpstreamStatusError) bool {
	if e.Status == http.StatusTooManyRequests || e.Status == http.StatusBadRequest {
		return true
	}
	body := strings.ToLower(e.Body)
	return strings.Contains(body, "quota") || strings.Contains(body, "resource_exhausted") || strings.Contains(body, "rate limit")
}

func (c *RAGClient) attempt(ctx context.Context, model string, messages []types.CompletionMessage, cityID *uuid.UUID, useKnowledge bool) (types.CompletionResult, error) {
	reqBody := types.CompletionRequest{
		Model:          model,
		Messages:       messages,
		CityID:         cityID,
		IsUseKnowledge: useKnowledge,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("calling retrieval service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.CompletionResult{}, fmt.Errorf("reading retrieval response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return types.CompletionResult{}, &api.UpstreamStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed upstreamResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return types.CompletionResult{}, fmt.Errorf("decoding retrieval response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return types.CompletionResult{}, fmt.Errorf("retrieval response carried no choices: %w", api.ErrUpstream)
	}

	seen := make(map[uuid.UUID]struct{}, len(parsed.References))
	deduped := make([]uuid.UUID, 0, len(parsed.References))
	for _, id := range parsed.References {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	resultModel := parsed.Model
	if resultModel == "" {
		resultModel = model
	}
	return types.CompletionResult{
		Content:        parsed.Choices[0].Message.Content,
		DestinationIDs: deduped,
		Model:          resultModel,
	}, nil
}

// Complete walks the model ladder: the primary model first, then the
// backup and economical ones, but only while the failure looks like a
// quota rejection. Any other failure, or exhaustion of the ladder,
// surfaces the last upstream status and body; a transport failure with
// no response surfaces as a plain error.
func (c *RAGClient) Complete(ctx context.Context, model string, messages []types.CompletionMessage, cityID *uuid.UUID, useKnowledge bool) (types.CompletionResult, error) {
	ctx, span := otel.Tracer("RAGClient").Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("rag.model", model),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "Complete"))

	if model == "" {
		model = c.cfg.PrimaryModel
	}
	ladder := []string{model}
	for _, fallback := range []string{c.cfg.BackupModel, c.cfg.EconomicalModel} {
		if fallback != "" && fallback != model {
			ladder = append(ladder, fallback)
		}
	}

	var lastErr error
	for i, m := range ladder {
		if i > 0 {
			c.metrics.ChatFallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("model", m)))
			l.WarnContext(ctx, "Falling back to cheaper model", slog.String("model", m), slog.Any("error", lastErr))
		}

		result, err := c.attempt(ctx, m, messages, cityID, useKnowledge)
		if err == nil {
			c.metrics.ChatCompletionsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("model", m),
				attribute.String("outcome", "success"),
			))
			span.SetStatus(codes.Ok, "Completion relayed")
			return result, nil
		}
		lastErr = err

		c.metrics.ChatCompletionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("model", m),
			attribute.String("outcome", "error"),
		))

		var ue *api.UpstreamStatusError
		if !(errors.As(err, &ue) && retryable(ue)) {
			break
		}
	}

	l.ErrorContext(ctx, "Completion failed", slog.Any("error", lastErr))
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "Completion failed")

	var ue *api.UpstreamStatusError
	if errors.As(lastErr, &ue) {
		return types.CompletionResult{}, ue
	}
	return types.CompletionResult{}, fmt.Errorf("retrieval service unreachable: %w", lastErr)
}

// Ingest pushes one destination document into the retrieval index.
func (c *RAGClient) Ingest(ctx context.Context, destinationID uuid.UUID, content string) error {
	ctx, span := otel.Tracer("RAGClient").Start(ctx, "Ingest", trace.WithAttributes(
		attribute.String("rag.destination.id", destinationID.String()),
	))
	defer span.End()

	payload, err := json.Marshal(types.IngestParams{DestinationID: destinationID, Content: content})
	if err != nil {
		return fmt.Errorf("encoding ingest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/ingest", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Ingest failed")
		return fmt.Errorf("calling ingest endpoint: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		span.SetStatus(codes.Error, "Ingest rejected")
		return fmt.Errorf("ingest endpoint returned status %d: %s: %w", resp.StatusCode, string(body), api.ErrUpstream)
	}

	span.SetStatus(codes.Ok, "Document ingested")
	return nil
}
