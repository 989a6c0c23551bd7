package state

// Job statuses.
const (
	JobPending   = "PENDING"
	JobRunning   = "RUNNING"
	JobStopped   = "STOPPED"
	JobSucceeded = "SUCCEEDED"
	JobFailed    = "FAILED"
)

// JobInfo is the structured job record kept by the control plane.
type JobInfo struct {
	JobID                  string            `json:"job_id" yaml:"job_id"`
	Status                 string            `json:"status" yaml:"status"`
	Entrypoint             string            `json:"entrypoint" yaml:"entrypoint"`
	Message                string            `json:"message" yaml:"message"`
	ErrorType              string            `json:"error_type" yaml:"error_type"`
	StartTime              int64             `json:"start_time" yaml:"start_time"`
	EndTime                int64             `json:"end_time" yaml:"end_time"`
	Metadata               map[string]string `json:"metadata" yaml:"metadata"`
	RuntimeEnv             map[string]any    `json:"runtime_env" yaml:"runtime_env"`
	DriverAgentHTTPAddress string            `json:"driver_agent_http_address" yaml:"driver_agent_http_address"`
	DriverNodeID           string            `json:"driver_node_id" yaml:"driver_node_id"`
}

// ToMap flattens the job into a plain field map for transport. Empty
// optional fields are kept as nil so every job has the same keys.
func (j JobInfo) ToMap() map[string]any {
	m := map[string]any{
		"job_id":                    j.JobID,
		"status":                    j.Status,
		"entrypoint":                j.Entrypoint,
		"message":                   nilIfEmpty(j.Message),
		"error_type":                nilIfEmpty(j.ErrorType),
		"start_time":                j.StartTime,
		"end_time":                  nilIfZero(j.EndTime),
		"metadata":                  j.Metadata,
		"runtime_env":               j.RuntimeEnv,
		"driver_agent_http_address": nilIfEmpty(j.DriverAgentHTTPAddress),
		"driver_node_id":            nilIfEmpty(j.DriverNodeID),
	}
	if j.Metadata == nil {
		m["metadata"] = map[string]string{}
	}
	if j.RuntimeEnv == nil {
		m["runtime_env"] = map[string]any{}
	}
	return m
}

// JobFromRecord rebuilds a JobInfo from a generic record.
func JobFromRecord(r Record) JobInfo {
	j := JobInfo{
		JobID:                  str(r["job_id"]),
		Status:                 str(r["status"]),
		Entrypoint:             str(r["entrypoint"]),
		Message:                str(r["message"]),
		ErrorType:              str(r["error_type"]),
		StartTime:              int64Of(r["start_time"]),
		EndTime:                int64Of(r["end_time"]),
		DriverAgentHTTPAddress: str(r["driver_agent_http_address"]),
		DriverNodeID:           str(r["driver_node_id"]),
	}
	if md, ok := r["metadata"].(map[string]any); ok {
		j.Metadata = make(map[string]string, len(md))
		for k, v := range md {
			j.Metadata[k] = str(v)
		}
	}
	if md, ok := r["metadata"].(map[string]string); ok {
		j.Metadata = md
	}
	if env, ok := r["runtime_env"].(map[string]any); ok {
		j.RuntimeEnv = env
	}
	return j
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZero(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
