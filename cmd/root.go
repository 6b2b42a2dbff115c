package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cdcm-sim/cdcm/sim/store"
	"github.com/cdcm-sim/cdcm/sim/trace"
)

var (
	configPath string // Scenario YAML file
	steps      int    // Number of steps (overrides the scenario when > 0)
	seed       int64  // Seed for stochastic events (overrides the scenario when set)
	logLevel   string // Log verbosity level
	dbPath     string // SQLite file to persist the run into (optional)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cdcm",
	Short: "Dataflow/event simulator for habitat assemblies",
}

// runCmd executes a scenario and prints a summary of the tracked nodes
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a habitat scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg := loadScenarioOrDie()
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		if steps > 0 {
			cfg.Steps = steps
		}

		sc, err := buildScenario(cfg, cfg.Seed)
		if err != nil {
			logrus.Fatalf("Failed to build scenario: %v", err)
		}
		if err := sc.run(cmd.Context(), cfg.Steps); err != nil {
			logrus.Fatalf("%v", err)
		}
		printSummary(os.Stdout, trace.Summarize(sc.trace))

		if dbPath != "" {
			id, err := saveRun(cmd.Context(), dbPath, cfg, sc.trace)
			if err != nil {
				logrus.Fatalf("Failed to save run: %v", err)
			}
			fmt.Printf("Saved run %s to %s\n", id, dbPath)
		}
	},
}

// treeCmd prints the scope hierarchy of a scenario's graph
var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the node graph of a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg := loadScenarioOrDie()
		sc, err := buildScenario(cfg, cfg.Seed)
		if err != nil {
			logrus.Fatalf("Failed to build scenario: %v", err)
		}
		if err := renderTree(os.Stdout, sc.root); err != nil {
			logrus.Fatalf("Failed to render tree: %v", err)
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadScenarioOrDie() *ScenarioConfig {
	if configPath == "" {
		logrus.Fatalf("Scenario file not provided (--config). Exiting.")
	}
	cfg, err := LoadScenario(configPath)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid scenario %s: %v", configPath, err)
	}
	return cfg
}

func saveRun(ctx context.Context, path string, cfg *ScenarioConfig, st *trace.SimulationTrace) (string, error) {
	db, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return db.SaveRun(ctx, store.Run{
		Scenario: cfg.Name,
		Seed:     cfg.Seed,
		DT:       cfg.Clock.DT,
		Units:    cfg.Clock.Units,
		Steps:    cfg.Steps,
	}, st)
}

// printSummary writes one line per recorded node, sorted by path.
func printSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintf(w, "=== Simulation Summary ===\n")
	fmt.Fprintf(w, "Steps recorded: %d, samples: %d, event errors: %d\n", s.Steps, s.TotalSamples, s.EventErrors)
	paths := make([]string, 0, len(s.Nodes))
	for p := range s.Nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		n := s.Nodes[p]
		fmt.Fprintf(w, "%-45s initial=%-10.6g final=%-10.6g min=%-10.6g max=%.6g\n", p, n.Initial, n.Final, n.Min, n.Max)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, treeCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to the scenario YAML file")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		rootCmd.AddCommand(c)
	}
	runCmd.Flags().IntVar(&steps, "steps", 0, "Number of simulation steps (overrides the scenario)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for stochastic events (overrides the scenario)")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to persist the recorded run into")
}
