package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

func TestNewDatabricksAdapterValidatesInput(t *testing.T) {
	_, err := NewDatabricksAdapter("", "token", cost.ProviderAWS)
	assert.Error(t, err)

	_, err = NewDatabricksAdapter("https://ws.example.com", "token", cost.Provider("oracle"))
	assert.Error(t, err)

	a, err := NewDatabricksAdapter("https://ws.example.com/", "token", cost.ProviderAzure)
	require.NoError(t, err)
	assert.Equal(t, cost.ProviderAzure, a.Provider())
	assert.Equal(t, "https://ws.example.com", a.workspaceURL)
}

func TestFetchJobHistoryMapsRuns(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	runStart := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	runEnd := runStart.Add(2 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/2.1/jobs/runs/list", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("completed_only"))

		resp := map[string]any{
			"runs": []map[string]any{
				{
					"job_id":     42,
					"run_id":     7,
					"start_time": runStart.UnixMilli(),
					"end_time":   runEnd.UnixMilli(),
					"cluster_instance": map[string]any{
						"cluster_id": "0710-081234-abc123",
					},
					"cluster_spec": map[string]any{
						"new_cluster": map[string]any{
							"node_type_id": "i3.xlarge",
							"num_workers":  3,
						},
					},
					"state": map[string]any{"result_state": "SUCCESS"},
				},
				{
					// Incomplete run, no end time: dropped.
					"job_id":     43,
					"start_time": runStart.UnixMilli(),
				},
			},
			"has_more": false,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a, err := NewDatabricksAdapter(srv.URL, "secret", cost.ProviderAWS)
	require.NoError(t, err)

	records, err := a.FetchJobHistory(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, cost.ProviderAWS, rec.Provider)
	assert.Equal(t, "42", rec.JobID)
	assert.Equal(t, "0710-081234-abc123", rec.ClusterID)
	assert.Equal(t, "0710-081234-abc123", rec.ResourceID)
	assert.Equal(t, []string{"i3.xlarge"}, rec.InstanceTypes)
	assert.Equal(t, 2*time.Hour, rec.Duration)
	assert.False(t, rec.HasCPUUtilization())
	// 4 nodes for 2 hours.
	assert.InDelta(t, 8, rec.DBUHours, 1e-9)
	assert.Equal(t, runStart, rec.PeriodStart)
	assert.Equal(t, runEnd, rec.PeriodEnd)
}

func TestFetchJobHistoryPaginates(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	runStart := start.Add(12 * time.Hour)

	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		resp := map[string]any{
			"runs": []map[string]any{{
				"job_id":     1,
				"start_time": runStart.UnixMilli(),
				"end_time":   runStart.Add(time.Hour).UnixMilli(),
			}},
			"has_more": offset == "0",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a, err := NewDatabricksAdapter(srv.URL, "t", cost.ProviderAWS)
	require.NoError(t, err)

	records, err := a.FetchJobHistory(context.Background(), start, end)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []string{"0", "25"}, offsets)
}

func TestFetchJobHistorySurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "token expired", http.StatusForbidden)
	}))
	defer srv.Close()

	a, err := NewDatabricksAdapter(srv.URL, "t", cost.ProviderAWS)
	require.NoError(t, err)

	_, err = a.FetchJobHistory(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)

	var aerr *cost.AdapterError
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, aerr.Error(), "403")
}

func TestValidateCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"runs":[],"has_more":false}`))
	}))
	defer srv.Close()

	good, err := NewDatabricksAdapter(srv.URL, "good", cost.ProviderAWS)
	require.NoError(t, err)
	assert.NoError(t, good.ValidateCredentials(context.Background()))

	bad, err := NewDatabricksAdapter(srv.URL, "bad", cost.ProviderAWS)
	require.NoError(t, err)
	assert.Error(t, bad.ValidateCredentials(context.Background()))
}

func TestDefaultWindow(t *testing.T) {
	start, end := DefaultWindow()
	assert.True(t, start.Before(end))
	assert.Equal(t, 30*24*time.Hour, end.Sub(start))
	assert.Equal(t, time.UTC, start.Location())
}
