package controlplane

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// Seed is the YAML layout of a control plane seed file.
type Seed struct {
	Nodes           []state.NodeRecord `yaml:"nodes"`
	Actors          []map[string]any   `yaml:"actors"`
	Jobs            []state.JobInfo    `yaml:"jobs"`
	PlacementGroups []map[string]any   `yaml:"placement_groups"`
	Workers         []map[string]any   `yaml:"workers"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// Apply writes every seeded row into cp.
func (s *Seed) Apply(ctx context.Context, cp ControlPlane) error {
	for _, n := range s.Nodes {
		if err := cp.UpsertNode(ctx, n); err != nil {
			return fmt.Errorf("seed node %s: %w", n.NodeID, err)
		}
	}
	for _, j := range s.Jobs {
		if err := cp.PutRecord(ctx, state.KindJobs, state.Record(j.ToMap())); err != nil {
			return fmt.Errorf("seed job %s: %w", j.JobID, err)
		}
	}
	groups := []struct {
		kind state.Kind
		recs []map[string]any
	}{
		{state.KindActors, s.Actors},
		{state.KindPlacementGroups, s.PlacementGroups},
		{state.KindWorkers, s.Workers},
	}
	for _, g := range groups {
		for _, r := range g.recs {
			if err := cp.PutRecord(ctx, g.kind, state.Record(r)); err != nil {
				return fmt.Errorf("seed %s: %w", g.kind, err)
			}
		}
	}
	return nil
}
