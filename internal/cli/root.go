// Package cli wires the allocate command tree.
package cli

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/taskalloc/internal/application/allocation"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/config"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/logging"
	"github.com/eshaffer321/taskalloc/internal/infrastructure/storage"
	"github.com/eshaffer321/taskalloc/internal/observability"
)

// NewRootCommand builds the allocate command tree
func NewRootCommand() *cobra.Command {
	var flags RootFlags

	root := &cobra.Command{
		Use:           "allocate",
		Short:         "Distribute assignable work across participants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.Bind(root)

	root.AddCommand(
		newRunCommand(&flags),
		newShowCommand(&flags),
		newDemoCommand(&flags),
	)
	return root
}

func newRunCommand(flags *RootFlags) *cobra.Command {
	var runFlags RunFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scripted allocation scenario",
		Long: `Run a YAML scenario against a fresh in-memory store.

Examples:
  allocate run --scenario scenarios/proportional.yaml
  allocate run --scenario weekly.yaml --config config.yaml -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := LoadScenario(runFlags.ScenarioPath)
			if err != nil {
				return err
			}
			return runScenario(cmd, flags.LoadConfig(), sc, runFlags.Seed)
		},
	}
	cmd.Flags().StringVar(&runFlags.ScenarioPath, "scenario", "", "Scenario file path (required)")
	cmd.Flags().Int64Var(&runFlags.Seed, "seed", 0, "Seed for generated work items (0 = time based)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func newShowCommand(flags *RootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured participants and a fresh session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := flags.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			policy, err := cfg.Engine.Policy()
			if err != nil {
				return err
			}

			session, err := allocation.NewSession(allocation.Options{
				BaseCapacity: cfg.Engine.BaseCapacity,
				Participants: cfg.EngineParticipants(),
				Policy:       policy,
				Chunk:        cfg.Engine.DefaultChunk,
			}, nil, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			PrintHeader(out, "config", policy)
			PrintState(out, session.State())
			return nil
		},
	}
}

func newDemoCommand(flags *RootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the built-in scenario for each policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := flags.LoadConfig()
			for i, sc := range DemoScenarios() {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := runScenario(cmd, cfg, sc, int64(i+1)); err != nil {
					return fmt.Errorf("demo %s: %w", sc.Name, err)
				}
			}
			return nil
		},
	}
}

// DemoScenarios returns one scripted session per policy over the same three
// participants and a capacity of ten
func DemoScenarios() []*Scenario {
	participants := func() []config.ParticipantConfig {
		return []config.ParticipantConfig{
			{ID: 1, Name: "Alice", CurrentLoad: 3},
			{ID: 2, Name: "Bob", CurrentLoad: 5},
			{ID: 3, Name: "Charlie", CurrentLoad: 2},
		}
	}
	capacity := func() *int {
		c := 10
		return &c
	}

	return []*Scenario{
		{
			Name:         "demo-unconstrained",
			BaseCapacity: capacity(),
			Policy:       "unconstrained",
			Participants: participants(),
			Steps: []Step{
				{Op: "action", Index: 1, Action: "subtract"},
				{Op: "set", Index: 1, Value: "2"},
				{Op: "set", Index: 0, Value: "4"},
				{Op: "fill", Index: 2},
				{Op: "submit"},
			},
		},
		{
			Name:         "demo-proportional",
			BaseCapacity: capacity(),
			Policy:       "proportional",
			Participants: participants(),
			Steps: []Step{
				{Op: "pool", Value: "10"},
				{Op: "apply"},
				{Op: "percent", Index: 0, Value: "70"},
				{Op: "submit"},
			},
		},
		{
			Name:         "demo-fixed",
			BaseCapacity: capacity(),
			Policy:       "fixed",
			Chunk:        4,
			Participants: participants(),
			Steps: []Step{
				{Op: "pool", Value: "10"},
				{Op: "apply"},
				{Op: "submit"},
			},
		},
	}
}

func runScenario(cmd *cobra.Command, cfg *config.Config, sc *Scenario, seed int64) error {
	logger := logging.NewLoggerWithWriter(cfg.Observability.Logging, cmd.ErrOrStderr())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	capacity, participants, policy, chunk, err := sc.Resolve(cfg)
	if err != nil {
		return err
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := storage.RandomItems(rand.New(rand.NewSource(seed)), time.Now)
	repo := storage.NewMemoryRepository(storage.Seed(capacity, participants, gen), gen)

	snap, err := repo.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch store: %w", err)
	}

	var (
		metrics  *observability.Metrics
		recorder allocation.Recorder
	)
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics()
		recorder = metrics
	}

	session, err := allocation.NewSession(allocation.Options{
		BaseCapacity: snap.AssignableTasks,
		Participants: snap.EngineParticipants(),
		Policy:       policy,
		Chunk:        chunk,
	}, logger.With("system", "allocation"), recorder)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, sc.Name, policy)

	runner := NewRunner(session, repo, logger.With("system", "cli"))
	result, err := runner.Run(cmd.Context(), sc.Steps)
	if err != nil {
		return err
	}

	PrintState(out, session.State())
	PrintRunSummary(out, result)

	final, err := repo.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch store: %w", err)
	}
	fmt.Fprintln(out)
	PrintStore(out, final)

	if metrics != nil {
		fmt.Fprintln(out)
		if err := metrics.WriteSummary(out); err != nil {
			logger.Warn("Failed to write metrics summary", slog.String("error", err.Error()))
		}
	}
	return nil
}
