package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivutravel/vivu-backend/app/observability/metrics"
	"github.com/vivutravel/vivu-backend/config"
	"github.com/vivutravel/vivu-backend/internal/api"
	"github.com/vivutravel/vivu-backend/internal/types"
)

func newTestRAGClient(t *testing.T, baseURL string) *RAGClient {
	t.Helper()
	metrics.InitAppMetrics()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := config.RAGConfig{
		BaseURL:         baseURL,
		PrimaryModel:    "primary",
		BackupModel:     "backup",
		EconomicalModel: "economical",
		Timeout:         5 * time.Second,
	}
	return NewRAGClient(cfg, metrics.Get(), logger)
}

func completionBody(model, content string, refs ...uuid.UUID) map[string]any {
	return map[string]any{
		"model": model,
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"references": refs,
	}
}

func TestRAGClient_Complete_PrimarySucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req types.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "primary", req.Model)
		assert.True(t, req.IsUseKnowledge)

		json.NewEncoder(w).Encode(completionBody("primary", "answer")) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	result, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "what should I see in Hue?"},
	}, nil, true)

	require.NoError(t, err)
	assert.Equal(t, "answer", result.Content)
	assert.Equal(t, "primary", result.Model)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRAGClient_Complete_QuotaFallsBack(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)

		if req.Model == "primary" {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`)) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(completionBody(req.Model, "fallback answer")) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	result, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, true)

	require.NoError(t, err)
	assert.Equal(t, "backup", result.Model)
	assert.Equal(t, []string{"primary", "backup"}, models)
}

func TestRAGClient_Complete_QuotaBodyOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`RESOURCE_EXHAUSTED: quota exceeded for model`)) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(completionBody("backup", "ok")) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	result, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, true)

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRAGClient_Complete_NonRetryableStopsLadder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	_, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUpstream))
	var ue *api.UpstreamStatusError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Contains(t, ue.Body, "invalid api key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRAGClient_Complete_KnowledgeFlagForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.IsUseKnowledge)
		json.NewEncoder(w).Encode(completionBody("primary", "raw answer")) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	result, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, false)

	require.NoError(t, err)
	assert.Equal(t, "raw answer", result.Content)
}

func TestRAGClient_Complete_LadderExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`quota`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	_, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUpstream))
	var ue *api.UpstreamStatusError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
	assert.Equal(t, int32(3), calls.Load(), "all three ladder models should be tried")
}

func TestRAGClient_Complete_DeduplicatesReferences(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionBody("primary", "answer", a, b, a)) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	result, err := client.Complete(context.Background(), "", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, true)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, result.DestinationIDs)
}

func TestRAGClient_Complete_ExplicitModelHeadsLadder(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.CompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		json.NewEncoder(w).Encode(completionBody(req.Model, "hi")) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestRAGClient(t, srv.URL)
	_, err := client.Complete(context.Background(), "backup", []types.CompletionMessage{
		{Role: types.RoleUser, Content: "hello"},
	}, nil, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"backup"}, models)
}

func TestRAGClient_Ingest(t *testing.T) {
	destID := uuid.New()

	t.Run("accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/ingest", r.URL.Path)
			var req types.IngestParams
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, destID, req.DestinationID)
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := newTestRAGClient(t, srv.URL)
		require.NoError(t, client.Ingest(context.Background(), destID, "document text"))
	})

	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		client := newTestRAGClient(t, srv.URL)
		err := client.Ingest(context.Background(), destID, "document text")
		require.Error(t, err)
		assert.True(t, errors.Is(err, api.ErrUpstream))
	})
}
