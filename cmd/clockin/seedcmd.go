package main

import (
	"fmt"
	"io"
	"os"

	"carolinalumpers.com/clockin/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type seedWorker struct {
	WorkerID     string         `yaml:"workerId"`
	Name         string         `yaml:"name"`
	Availability string         `yaml:"availability"`
	Role         string         `yaml:"role"`
	Email        string         `yaml:"email"`
	Attributes   map[string]any `yaml:"attributes"`
}

func parseWorkers(r io.Reader) ([]model.Worker, error) {
	var seeds []seedWorker
	if err := yaml.NewDecoder(r).Decode(&seeds); err != nil {
		return nil, fmt.Errorf("parse workers: %w", err)
	}

	workers := make([]model.Worker, 0, len(seeds))
	for i, s := range seeds {
		if s.WorkerID == "" {
			return nil, fmt.Errorf("worker %d: workerId is required", i+1)
		}
		w := model.Worker{
			WorkerID:           s.WorkerID,
			Name:               s.Name,
			AvailabilityStatus: s.Availability,
			Role:               s.Role,
		}
		if w.AvailabilityStatus == "" {
			w.AvailabilityStatus = model.AvailabilityActive
		}
		if s.Email != "" {
			w.Email = &s.Email
		}
		if len(s.Attributes) > 0 {
			if err := w.SetAttributes(s.Attributes); err != nil {
				return nil, fmt.Errorf("worker %s: %w", s.WorkerID, err)
			}
		}
		workers = append(workers, w)
	}
	return workers, nil
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <workers.yaml>",
		Short: "Upsert workers from a YAML list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			workers, err := parseWorkers(f)
			if err != nil {
				return err
			}

			a, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Workers.SaveWorkers(cmd.Context(), workers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d workers\n", len(workers))
			return nil
		},
	}
}
