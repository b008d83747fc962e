package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reactir/internal/logging"
	"reactir/internal/store"
	"reactir/internal/supervisor"
)

type runOverrides struct {
	user       string
	project    string
	experiment string
	document   string
	endpoint   string
	note       string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var overrides runOverrides

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record spectra and trends until the experiment stops",
		Long: `Connect to the instrument, wait for the probe to report "running", and
record raw spectra and trend samples until the run stops or the process is
interrupted (Ctrl+C). Both loops finish their current tick and flush buffered
trend rows before the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides.apply(cmd, &cfg.Run.User, "user", overrides.user)
			overrides.apply(cmd, &cfg.Run.Project, "project", overrides.project)
			overrides.apply(cmd, &cfg.Run.Experiment, "experiment", overrides.experiment)
			overrides.apply(cmd, &cfg.Run.Document, "document", overrides.document)
			overrides.apply(cmd, &cfg.Instrument.Endpoint, "endpoint", overrides.endpoint)
			overrides.apply(cmd, &cfg.Trend.Note, "note", overrides.note)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(cfg.Paths.DatabasePath)
			if err != nil {
				logger.Error("open database", logging.Error(err))
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			link, err := dialInstrument(signalCtx, cfg.Instrument, logger)
			if err != nil {
				logging.ErrorWithContext(logger, "instrument connection failed", "instrument_connect_failed",
					logging.Error(err),
					logging.String("endpoint", cfg.Instrument.Endpoint),
					logging.String(logging.FieldErrorHint, "check the OPC UA server is running and instrument.endpoint is correct"),
				)
				return err
			}

			sup, err := supervisor.New(cfg, link, st, logger)
			if err != nil {
				return err
			}
			summary, runErr := sup.Run(signalCtx)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if summary.RunID == "" {
				return runErr
			}
			for _, line := range renderSectionHeader("Run "+summary.Document, colorize) {
				fmt.Fprintln(out, line)
			}
			kind := statusOK
			switch {
			case runErr != nil:
				kind = statusError
			case summary.LostTicks > 0 || !summary.TrendClosed:
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Result", kind, summary.String(), colorize))
			fmt.Fprintln(out, renderStatusLine("Run ID", statusInfo, summary.RunID, colorize))
			fmt.Fprintln(out, renderStatusLine("Trend closed", statusInfo, yesNo(summary.TrendClosed), colorize))
			if summary.LostTicks > 0 {
				fmt.Fprintln(out, renderStatusLine("Lost trend ticks", statusWarn, fmt.Sprint(summary.LostTicks), colorize))
			}
			faultKind := statusInfo
			if summary.Faults > 0 {
				faultKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Faults", faultKind, fmt.Sprintf("%d (%s)", summary.Faults, summary.ErrorLogPath), colorize))
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.user, "user", "", "Override run.user")
	flags.StringVar(&overrides.project, "project", "", "Override run.project")
	flags.StringVar(&overrides.experiment, "experiment", "", "Override run.experiment")
	flags.StringVar(&overrides.document, "document", "", "Override run.document")
	flags.StringVar(&overrides.endpoint, "endpoint", "", "Override instrument.endpoint")
	flags.StringVar(&overrides.note, "note", "", "User note stored on the trend")
	return cmd
}

func (runOverrides) apply(cmd *cobra.Command, target *string, flag, value string) {
	if cmd.Flags().Changed(flag) {
		*target = strings.TrimSpace(value)
	}
}
