package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tableturn/forecaster/common/export"
	"github.com/tableturn/forecaster/common/repository"
	"github.com/tableturn/forecaster/common/service"
)

// ExportOptions configures the export command
type ExportOptions struct {
	LocationID string `mapstructure:"location"`
	Hours      int    `mapstructure:"hours"`
	Smooth     bool   `mapstructure:"smooth"`
	Sink       string `mapstructure:"sink"`
	Out        string `mapstructure:"out"`
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build a staffing plan and write it to a sink",
		Long: `Build the staffing plan for the next hours and write it to one of the
sinks: console, kafka, parquet (local or S3) or xlsx.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts ExportOptions
			if err := loadOptions(cmd.Flags(), &opts); err != nil {
				return err
			}
			if opts.LocationID == "" {
				return fmt.Errorf("--location is required")
			}
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().String("location", "", "Location id")
	cmd.Flags().Int("hours", 24, "Plan horizon in hours")
	cmd.Flags().Bool("smooth", true, "Damp hour-to-hour staffing swings")
	cmd.Flags().String("sink", export.SinkConsole, "Sink: console, kafka, parquet or xlsx")
	cmd.Flags().String("out", "", "Output directory for file sinks (defaults to EXPORT_OUTPUT_DIR)")
	return cmd
}

func runExport(cmd *cobra.Command, opts ExportOptions) error {
	ctx := cmd.Context()

	components, err := setupStore(ctx)
	if err != nil {
		return err
	}
	defer components.Shutdown(ctx)

	cfg := components.Config
	planner := service.NewPlanService(
		repository.NewRollupRepository(components.DB),
		repository.NewLocationRepository(components.DB),
		cfg.Forecast.HistoryDays,
		components.Logger,
	)

	plan, err := planner.Staffing(ctx, opts.LocationID, opts.Hours, opts.Smooth)
	if err != nil {
		return err
	}

	exportCfg := cfg.Export
	if opts.Out != "" {
		exportCfg.OutputDir = opts.Out
	}
	sink, err := export.New(ctx, opts.Sink, exportCfg, components.Logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	dest, err := export.Export(ctx, sink, opts.LocationID, plan)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "exported %d plan hours for %s to %s\n", len(plan), opts.LocationID, dest)
	return nil
}
