package agent

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// LocalState holds the records an agent reports about its own node.
type LocalState struct {
	mu      sync.RWMutex
	records map[state.Kind][]state.Record
}

type stateFile struct {
	Tasks       []map[string]any `yaml:"tasks"`
	Objects     []map[string]any `yaml:"objects"`
	RuntimeEnvs []map[string]any `yaml:"runtime_envs"`
}

// NewLocalState creates an empty store.
func NewLocalState() *LocalState {
	return &LocalState{records: make(map[state.Kind][]state.Record)}
}

// LoadLocalState reads a YAML state file with tasks, objects and
// runtime_envs lists.
func LoadLocalState(path string) (*LocalState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}
	var f stateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	s := NewLocalState()
	for kind, recs := range map[state.Kind][]map[string]any{
		state.KindTasks:       f.Tasks,
		state.KindObjects:     f.Objects,
		state.KindRuntimeEnvs: f.RuntimeEnvs,
	} {
		for _, r := range recs {
			s.Add(kind, state.Record(r))
		}
	}
	return s, nil
}

// Add appends a record.
func (s *LocalState) Add(kind state.Kind, rec state.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[kind] = append(s.records[kind], rec)
}

// List returns the records of a kind that match every filter, at most
// limit of them (0 means no limit).
func (s *LocalState) List(kind state.Kind, filters []state.Filter, limit int) []state.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.Record, 0)
	for _, r := range s.records[kind] {
		if !r.Matches(filters) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
