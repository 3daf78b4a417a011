package filter_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"moderation-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, HealthTimeout: 200 * time.Millisecond}, zaptest.NewLogger(t))
}

func filterHandler(t *testing.T, verdict func(req FilterRequest) FilterResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/filter", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req FilterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verdict(req))
	}
}

func TestClassify_ToxicDerivedFromAction(t *testing.T) {
	tests := []struct {
		action        string
		expectedToxic bool
	}{
		{action: "keep", expectedToxic: false},
		{action: "delete", expectedToxic: true},
		{action: "review", expectedToxic: true},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			client := newTestClient(t, filterHandler(t, func(req FilterRequest) FilterResponse {
				return FilterResponse{Category: "harassment", Confidence: 0.75, Action: tt.action}
			}))

			result, err := client.Classify(context.Background(), "some text", "id-1")
			require.NoError(t, err)
			assert.Equal(t, tt.expectedToxic, result.Toxic)
			assert.Equal(t, tt.action, result.Action)
		})
	}
}

func TestClassify_MapsEnrichmentFields(t *testing.T) {
	var gotReq FilterRequest
	client := newTestClient(t, filterHandler(t, func(req FilterRequest) FilterResponse {
		gotReq = req
		return FilterResponse{
			Category:       "threat",
			Confidence:     0.9,
			Action:         "delete",
			Reason:         "explicit threat",
			Severity:       "critical",
			IsExempted:     false,
			ProcessingPath: "detoxify+llm",
			AllScores:      map[string]float64{"threat": 0.9},
			DetoxifyRaw:    map[string]float64{"toxicity": 0.97},
			SimilarCases:   []models.SimilarCase{{Text: "die", Category: "threat", Similarity: 0.8}},
			LLMAnalysis:    map[string]any{"intent": "harm"},
		}
	}))

	result, err := client.Classify(context.Background(), "kill yourself nobody likes you", "req-42")
	require.NoError(t, err)

	assert.Equal(t, "kill yourself nobody likes you", gotReq.Text)
	assert.Equal(t, "req-42", gotReq.ID)
	assert.True(t, result.Toxic)
	assert.Equal(t, 0.9, result.Score)
	assert.Equal(t, "threat", result.Category)
	assert.Equal(t, "explicit threat", result.Reason)
	assert.Equal(t, "critical", result.Severity)
	require.NotNil(t, result.IsExempted)
	assert.False(t, *result.IsExempted)
	assert.Equal(t, "detoxify+llm", result.ProcessingPath)
	assert.Equal(t, 0.97, result.DetoxifyRaw["toxicity"])
	require.Len(t, result.SimilarCases, 1)
	assert.Equal(t, "harm", result.LLMAnalysis["intent"])
}

func TestClassify_GeneratesIDWhenMissing(t *testing.T) {
	var gotID string
	client := newTestClient(t, filterHandler(t, func(req FilterRequest) FilterResponse {
		gotID = req.ID
		return FilterResponse{Action: "keep", Category: "safe"}
	}))

	_, err := client.Classify(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.NotEmpty(t, gotID)
}

func TestClassify_ClampsScore(t *testing.T) {
	client := newTestClient(t, filterHandler(t, func(req FilterRequest) FilterResponse {
		return FilterResponse{Action: "delete", Confidence: 1.7}
	}))

	result, err := client.Classify(context.Background(), "x", "id")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Score)
}

func TestClassify_Non2xxIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("model not loaded"))
	})

	_, err := client.Classify(context.Background(), "x", "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClassify_MalformedBodyIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := client.Classify(context.Background(), "x", "id")
	assert.Error(t, err)
}

func TestClassify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: url}, zaptest.NewLogger(t))
	_, err := client.Classify(context.Background(), "x", "id")
	assert.Error(t, err)
}

func TestClassifyBatch_PreservesOrder(t *testing.T) {
	client := newTestClient(t, filterHandler(t, func(req FilterRequest) FilterResponse {
		if req.ID == "a" {
			time.Sleep(30 * time.Millisecond)
			return FilterResponse{Action: "keep", Category: "safe"}
		}
		return FilterResponse{Action: "delete", Category: "threat"}
	}))

	results, err := client.ClassifyBatch(context.Background(), []models.BatchItem{
		{ID: "a", Text: "hello"},
		{ID: "b", Text: "die"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.False(t, results[0].Toxic)
	assert.Equal(t, "b", results[1].ID)
	assert.True(t, results[1].Toxic)
}

func TestClassifyBatch_OneFailureFailsAll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req FilterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ID == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(FilterResponse{Action: "keep"})
	})

	results, err := client.ClassifyBatch(context.Background(), []models.BatchItem{
		{ID: "good", Text: "a"},
		{ID: "bad", Text: "b"},
	})
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestHealthy(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, filterHandler(t, func(req FilterRequest) FilterResponse {
		calls.Add(1)
		assert.Equal(t, "test", req.Text)
		assert.Equal(t, "health_check", req.ID)
		return FilterResponse{Action: "keep"}
	}))

	assert.True(t, client.Healthy(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealthy_Any2xxIsHealthy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	assert.True(t, client.Healthy(context.Background()))
}

func TestHealthy_Non2xxIsUnhealthy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.False(t, client.Healthy(context.Background()))
}

func TestHealthy_TimeoutIsUnhealthy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	start := time.Now()
	assert.False(t, client.Healthy(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		var req GenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Count)
		assert.Equal(t, "attack", req.Mode)
		assert.Nil(t, req.Language)
		_, _ = w.Write([]byte(`{"comments":["a","b","c"]}`))
	})

	raw, err := client.Generate(context.Background(), GenerateRequest{Count: 3, Mode: "attack"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":["a","b","c"]}`, string(raw))
}
