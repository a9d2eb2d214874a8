package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand. Empty values fall through to the
// config file, the environment and the built-in defaults.
type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "printwatch",
		Short: "Terminal dashboard for the 3D print defect analysis service",
		Long: `printwatch monitors a remote 3D print defect analysis service: live frame,
progress, defect counters and console output, with start/pause/step/stop
controls.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig(flags.configPath, cmd)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runDashboard(cfg)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/printwatch/config.yml)")
	pf.String("base-url", "", "analysis service base URL (default "+defaultBaseURL+")")
	pf.String("video-path", "", "video file the service should analyze")
	pf.Duration("request-timeout", 0, "per-request timeout")
	cmd.Flags().String("capture-dir", "", "directory for frame captures (default ~/Pictures)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	cmd.AddCommand(newProbeCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "printwatch - Print Defect Analysis Dashboard\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}
}
