// CONSENSUS — which stocks do the best mutual funds agree on?
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jantolip/consensus/api"
	"github.com/jantolip/consensus/internal/config"
	"github.com/jantolip/consensus/internal/morningstar"
	"github.com/jantolip/consensus/internal/pipeline"
	"github.com/jantolip/consensus/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "consensus",
	Short: "CONSENSUS — most held stocks among the top-performing funds",
	Long: `CONSENSUS screens the equity funds with the best 10-year returns,
pulls each fund's top U.S. holdings, filters out near-duplicate funds,
and tallies which tickers the surviving funds agree on.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("consensus %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis once and print the consensus table",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := pipeline.OptionsFromConfig(cfg)
		if v, _ := cmd.Flags().GetInt("min-appearances"); v > 0 {
			opts.MinAppearances = v
		}
		if cmd.Flags().Changed("similarity") {
			v, _ := cmd.Flags().GetInt("similarity")
			if v < 0 || v > 100 {
				return fmt.Errorf("similarity must be between 0 and 100, got %d", v)
			}
			opts.SimilarityThreshold = v
		}

		src := morningstar.NewClient(cfg)
		runner := pipeline.NewRunner(src, opts)
		result, err := runner.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
			f, err := os.Create(csvPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", csvPath, err)
			}
			defer f.Close()
			if err := report.WriteCSV(f, result.Tally); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %s\n", csvPath)
		}

		fmt.Print(report.RenderTerminal(report.Markdown(result)))
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("json", false, "print the full result as JSON")
	runCmd.Flags().String("csv", "", "also write the tally to this CSV file")
	runCmd.Flags().Int("min-appearances", 0, "override minimum appearances (config: pipeline.min_appearances)")
	runCmd.Flags().Int("similarity", 0, "override fund-name similarity threshold 0-100 (config: pipeline.similarity_threshold)")
}

// --- Serve Command (dashboard + API server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard and HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		src := morningstar.NewClient(cfg)
		srv := api.NewServer(cfg, src, version)

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting consensus server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  CONSENSUS — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		cfgFile := config.ConfigFilePath()
		if cfgFile == "" {
			cfgFile = "(defaults + environment)"
		}
		fmt.Printf("  Config file:   %s\n", cfgFile)
		fmt.Println()
		fmt.Println("  Screener:")
		fmt.Printf("    Universe:        %s\n", cfg.Screener.UniverseID)
		fmt.Printf("    Pages:           %d × %d funds\n", cfg.Screener.Pages, cfg.Screener.PageSize)
		fmt.Printf("    Category filter: contains %q\n", cfg.Screener.CategoryContains)
		fmt.Println("  Pipeline:")
		fmt.Printf("    Min appearances: %d\n", cfg.Pipeline.MinAppearances)
		fmt.Printf("    Similarity:      %d\n", cfg.Pipeline.SimilarityThreshold)
		fmt.Printf("    Excluded:        %v\n", cfg.Pipeline.ExcludedTickers)
		fmt.Println("  Server:")
		fmt.Printf("    Listen:          %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Cache TTL:       %ds\n", cfg.Cache.TTLSec)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
