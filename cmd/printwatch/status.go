package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/printwatch/internal/analysisapi"
	"github.com/tinytelemetry/printwatch/internal/model"
	"github.com/tinytelemetry/printwatch/internal/viewmodel"
)

func newClient(flags *rootFlags, cmd *cobra.Command) (*analysisapi.Client, cliConfig, error) {
	cfg, err := loadCLIConfig(flags.configPath, cmd)
	if err != nil {
		return nil, cfg, fmt.Errorf("loading config: %w", err)
	}
	client, err := analysisapi.New(cfg.BaseURL, cfg.Session.RequestTimeout)
	if err != nil {
		return nil, cfg, err
	}
	return client, cfg, nil
}

func newProbeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether the analysis service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(flags, cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Session.RequestTimeout)
			defer cancel()

			started := time.Now()
			if err := client.Probe(ctx); err != nil {
				return fmt.Errorf("%s: %w", client.BaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reachable (%s)\n", client.BaseURL(), time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current analysis state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(flags, cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Session.RequestTimeout)
			defer cancel()

			state, err := client.AnalysisState(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", client.BaseURL(), err)
			}
			return writeStatus(cmd.OutOrStdout(), output, state)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml|json")
	return cmd
}

// statusReport is the analysis state plus derived display fields.
type statusReport struct {
	Status   string              `json:"status" yaml:"status"`
	Progress float64             `json:"progress_percent" yaml:"progress_percent"`
	Total    int                 `json:"total_defects" yaml:"total_defects"`
	State    model.AnalysisState `json:"state" yaml:"state"`
}

func writeStatus(w io.Writer, format string, state model.AnalysisState) error {
	report := statusReport{
		Status:   viewmodel.StatusLabel(state).String(),
		Progress: viewmodel.ProgressPercent(state),
		Total:    viewmodel.TotalDefects(state),
		State:    state,
	}
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}
