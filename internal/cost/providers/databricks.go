package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// databricksPageSize is the Jobs API maximum for list-runs.
const databricksPageSize = 25

// DatabricksAdapter fetches completed job runs from the Databricks Jobs
// REST API and turns them into job history records attributed to the
// cloud the workspace runs on.
type DatabricksAdapter struct {
	workspaceURL string
	token        string
	provider     cost.Provider
	client       *http.Client
}

// NewDatabricksAdapter creates an adapter against the given workspace.
// cloudProvider names the cloud hosting the workspace so job history can
// be joined against that cloud's billing records.
func NewDatabricksAdapter(workspaceURL, token string, cloudProvider cost.Provider) (*DatabricksAdapter, error) {
	if workspaceURL == "" {
		return nil, &cost.ConfigurationError{Reason: "databricks workspace URL must be set"}
	}
	if !cloudProvider.IsValid() {
		return nil, &cost.ConfigurationError{Reason: fmt.Sprintf("databricks cloud provider %q is not recognized", cloudProvider)}
	}

	return &DatabricksAdapter{
		workspaceURL: strings.TrimRight(workspaceURL, "/"),
		token:        token,
		provider:     cloudProvider,
		client:       &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (a *DatabricksAdapter) Provider() cost.Provider {
	return a.provider
}

// jobRun mirrors the subset of the Jobs API run object the analyzer needs.
type jobRun struct {
	JobID             int64 `json:"job_id"`
	RunID             int64 `json:"run_id"`
	StartTime         int64 `json:"start_time"`
	EndTime           int64 `json:"end_time"`
	ExecutionDuration int64 `json:"execution_duration"`
	ClusterInstance   struct {
		ClusterID string `json:"cluster_id"`
	} `json:"cluster_instance"`
	ClusterSpec struct {
		NewCluster struct {
			NodeTypeID string `json:"node_type_id"`
			NumWorkers int    `json:"num_workers"`
		} `json:"new_cluster"`
	} `json:"cluster_spec"`
	State struct {
		ResultState string `json:"result_state"`
	} `json:"state"`
}

type listRunsResponse struct {
	Runs    []jobRun `json:"runs"`
	HasMore bool     `json:"has_more"`
}

// FetchJobHistory pages through completed runs in [start, end) and maps
// each one to a job history record. CPU and memory utilization are not
// exposed by the Jobs API, so they are reported as absent.
func (a *DatabricksAdapter) FetchJobHistory(ctx context.Context, start, end time.Time) ([]cost.JobHistoryRecord, error) {
	var records []cost.JobHistoryRecord

	offset := 0
	for {
		resp, err := a.listRuns(ctx, start, end, offset)
		if err != nil {
			return nil, err
		}

		for _, run := range resp.Runs {
			rec, ok := a.toJobHistory(run, start, end)
			if !ok {
				continue
			}
			records = append(records, rec)
		}

		if !resp.HasMore {
			break
		}
		offset += databricksPageSize
	}

	return records, nil
}

func (a *DatabricksAdapter) listRuns(ctx context.Context, start, end time.Time, offset int) (*listRunsResponse, error) {
	params := url.Values{}
	params.Set("completed_only", "true")
	params.Set("start_time_from", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("start_time_to", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", strconv.Itoa(databricksPageSize))
	params.Set("offset", strconv.Itoa(offset))

	endpoint := a.workspaceURL + "/api/2.1/jobs/runs/list?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &cost.AdapterError{Provider: a.provider, Op: "build jobs request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &cost.AdapterError{Provider: a.provider, Op: "list job runs", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &cost.AdapterError{
			Provider: a.provider,
			Op:       "list job runs",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var out listRunsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &cost.AdapterError{Provider: a.provider, Op: "decode job runs", Err: err}
	}
	return &out, nil
}

func (a *DatabricksAdapter) toJobHistory(run jobRun, start, end time.Time) (cost.JobHistoryRecord, bool) {
	if run.StartTime == 0 || run.EndTime <= run.StartTime {
		return cost.JobHistoryRecord{}, false
	}

	periodStart := time.UnixMilli(run.StartTime).UTC()
	periodEnd := time.UnixMilli(run.EndTime).UTC()
	if periodEnd.Before(start) || !periodStart.Before(end) {
		return cost.JobHistoryRecord{}, false
	}

	var instanceTypes []string
	if t := run.ClusterSpec.NewCluster.NodeTypeID; t != "" {
		instanceTypes = []string{t}
	}

	rec := cost.JobHistoryRecord{
		Provider:      a.provider,
		JobID:         strconv.FormatInt(run.JobID, 10),
		ClusterID:     run.ClusterInstance.ClusterID,
		InstanceTypes: instanceTypes,
		Duration:      periodEnd.Sub(periodStart),
		// The Jobs API does not report utilization; mark it absent so
		// strategies fall back to usage-based signals.
		CPUUtilization:    -1,
		MemoryUtilization: -1,
		DBUHours:          dbuHours(run, periodEnd.Sub(periodStart)),
		ResourceID:        run.ClusterInstance.ClusterID,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
	}
	return rec, true
}

// dbuHours estimates DBU consumption from run duration and cluster size.
// The list endpoint carries no billing figures, so one node-hour is
// counted as one DBU-hour.
func dbuHours(run jobRun, duration time.Duration) float64 {
	nodes := run.ClusterSpec.NewCluster.NumWorkers + 1
	return duration.Hours() * float64(nodes)
}

// ValidateCredentials lists a single run to confirm the token works.
func (a *DatabricksAdapter) ValidateCredentials(ctx context.Context) error {
	endpoint := a.workspaceURL + "/api/2.1/jobs/runs/list?limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &cost.AdapterError{Provider: a.provider, Op: "build jobs request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return &cost.AdapterError{Provider: a.provider, Op: "validate credentials", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &cost.AdapterError{
			Provider: a.provider,
			Op:       "validate credentials",
			Err:      fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	return nil
}
