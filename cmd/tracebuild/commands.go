package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/tracebuild/tracebuild/internal/config"
	"github.com/tracebuild/tracebuild/internal/exporter"
	"github.com/tracebuild/tracebuild/internal/ident"
	"github.com/tracebuild/tracebuild/internal/model"
	"github.com/tracebuild/tracebuild/internal/runner"
	"github.com/tracebuild/tracebuild/internal/timestamp"
)

// errUsage marks caller mistakes (missing or malformed arguments) so run()
// can map them to the usage exit status.
var errUsage = errors.New("usage error")

func newApp(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:    "tracebuild",
		Usage:   "report build spans and metrics from short-lived CI processes",
		Version: version,
		Commands: []*cli.Command{
			createIDCommand(),
			createNowCommand(),
			createCmdCommand(logger),
			createStepCommand(logger),
			createBuildCommand(logger),
		},
	}
}

func createIDCommand() *cli.Command {
	return &cli.Command{
		Name:  "id",
		Usage: "generate an identifier usable as a build or step id",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := ident.NewBuildID()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, id)
			return nil
		},
	}
}

func createNowCommand() *cli.Command {
	return &cli.Command{
		Name:  "now",
		Usage: "generate a timestamp usable as a build or step start time",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Fprintln(cmd.Root().Writer, timestamp.Now())
			return nil
		},
	}
}

func createCmdCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "cmd",
		Usage:     "execute a command and report a span with its measured duration and exit code",
		ArgsUsage: "-- <command> [args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "build",
				Usage:   "build identifier",
				Sources: cli.EnvVars("TRACEBUILD_BUILD_ID"),
			},
			&cli.StringFlag{
				Name:    "step",
				Usage:   "enclosing step identifier",
				Sources: cli.EnvVars("TRACEBUILD_STEP_ID"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runCmd(ctx, cmd, logger)
		},
	}
}

func createStepCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "step",
		Usage: "report a span for a logical build phase",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "build",
				Usage:   "build identifier",
				Sources: cli.EnvVars("TRACEBUILD_BUILD_ID"),
			},
			&cli.StringFlag{
				Name:    "id",
				Usage:   "step identifier",
				Sources: cli.EnvVars("TRACEBUILD_STEP_ID"),
			},
			&cli.StringFlag{
				Name:    "step",
				Usage:   "enclosing step identifier",
				Sources: cli.EnvVars("TRACEBUILD_PARENT_STEP_ID"),
			},
			&cli.StringFlag{
				Name:    "start-time",
				Usage:   "step start time as emitted by `tracebuild now`",
				Sources: cli.EnvVars("TRACEBUILD_STEP_START"),
			},
			&cli.StringFlag{
				Name:    "name",
				Usage:   "step name",
				Sources: cli.EnvVars("TRACEBUILD_NAME"),
			},
			&cli.StringFlag{
				Name:    "status",
				Usage:   "step status (success|failure)",
				Sources: cli.EnvVars("TRACEBUILD_STATUS"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStep(ctx, cmd, logger)
		},
	}
}

func createBuildCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "report a span for the whole pipeline invocation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "id",
				Usage:   "build identifier",
				Sources: cli.EnvVars("TRACEBUILD_BUILD_ID"),
			},
			&cli.StringFlag{
				Name:    "start-time",
				Usage:   "build start time as emitted by `tracebuild now`",
				Sources: cli.EnvVars("TRACEBUILD_BUILD_START"),
			},
			&cli.StringFlag{
				Name:    "name",
				Usage:   "build name",
				Sources: cli.EnvVars("TRACEBUILD_NAME"),
			},
			&cli.StringFlag{
				Name:    "branch",
				Usage:   "branch name",
				Sources: cli.EnvVars("TRACEBUILD_BRANCH"),
			},
			&cli.StringFlag{
				Name:    "commit",
				Usage:   "commit SHA",
				Sources: cli.EnvVars("TRACEBUILD_COMMIT"),
			},
			&cli.StringFlag{
				Name:    "status",
				Usage:   "build status (success|failure)",
				Sources: cli.EnvVars("TRACEBUILD_STATUS"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runBuild(ctx, cmd, logger)
		},
	}
}

func runCmd(ctx context.Context, cmd *cli.Command, logger *slog.Logger) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: cmd: missing command to execute", errUsage)
	}
	build, err := requireBuildID(cmd, "build")
	if err != nil {
		return err
	}
	step, err := optionalStepID(cmd, "step")
	if err != nil {
		return err
	}

	// Configuration is validated before the child runs: an unknown exporter
	// name must fail fast, not after a 40-minute build.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	router := exporter.New(ctx, cfg, version, logger)

	res, runErr := runner.Run(args[0], args[1:])
	if runErr != nil {
		var spawnErr *runner.SpawnError
		if errors.As(runErr, &spawnErr) {
			// Nothing ran, so there is nothing to report.
			return runErr
		}
		// The child ran but its status is murky; report what we have.
		logger.Warn("wait failed, reporting fallback exit code", "error", runErr)
	}

	spanID, err := ident.NewBuildID()
	if err != nil {
		return err
	}
	rec := model.CmdSpan(model.CmdParams{
		Build:    build,
		Parent:   step,
		SpanID:   spanID.Span,
		Start:    res.Start,
		End:      res.End,
		Command:  args[0],
		Args:     args[1:],
		ExitCode: res.ExitCode,
	})
	router.ExportSpan(ctx, rec)
	router.ExportMetric(ctx, rec.DurationSample())
	router.Flush(ctx)

	// The contract: this process's exit status always equals the wrapped
	// command's real outcome, whatever happened to telemetry above.
	if code := runner.ExitStatus(res.ExitCode); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func runStep(ctx context.Context, cmd *cli.Command, logger *slog.Logger) error {
	build, err := requireBuildID(cmd, "build")
	if err != nil {
		return err
	}
	id, err := requireStepID(cmd, "id")
	if err != nil {
		return err
	}
	parent, err := optionalStepID(cmd, "step")
	if err != nil {
		return err
	}
	start, err := requireStartTime(cmd)
	if err != nil {
		return err
	}
	status, err := optionalStatus(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	router := exporter.New(ctx, cfg, version, logger)

	rec := model.StepSpan(model.StepParams{
		Build:  build,
		Parent: parent,
		ID:     id,
		Start:  start,
		End:    timestamp.Now(),
		Name:   cmd.String("name"),
		Status: status,
	})
	router.ExportSpan(ctx, rec)
	router.ExportMetric(ctx, rec.DurationSample())
	router.Flush(ctx)
	return nil
}

func runBuild(ctx context.Context, cmd *cli.Command, logger *slog.Logger) error {
	id, err := requireBuildID(cmd, "id")
	if err != nil {
		return err
	}
	start, err := requireStartTime(cmd)
	if err != nil {
		return err
	}
	status, err := optionalStatus(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	router := exporter.New(ctx, cfg, version, logger)

	rec := model.BuildSpan(model.BuildParams{
		ID:     id,
		Start:  start,
		End:    timestamp.Now(),
		Name:   cmd.String("name"),
		Branch: cmd.String("branch"),
		Commit: cmd.String("commit"),
		Status: status,
	})
	router.ExportSpan(ctx, rec)
	router.ExportMetric(ctx, rec.DurationSample())
	router.Flush(ctx)
	return nil
}

func requireBuildID(cmd *cli.Command, flag string) (ident.BuildID, error) {
	raw := cmd.String(flag)
	if raw == "" {
		return ident.BuildID{}, fmt.Errorf("%w: %s: missing --%s", errUsage, cmd.Name, flag)
	}
	return ident.ParseBuildID(raw)
}

func requireStepID(cmd *cli.Command, flag string) (ident.StepID, error) {
	raw := cmd.String(flag)
	if raw == "" {
		return ident.StepID{}, fmt.Errorf("%w: %s: missing --%s", errUsage, cmd.Name, flag)
	}
	return ident.ParseStepID(raw)
}

func optionalStepID(cmd *cli.Command, flag string) (*ident.StepID, error) {
	raw := cmd.String(flag)
	if raw == "" {
		return nil, nil
	}
	id, err := ident.ParseStepID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func requireStartTime(cmd *cli.Command) (timestamp.Timestamp, error) {
	raw := cmd.String("start-time")
	if raw == "" {
		return 0, fmt.Errorf("%w: %s: missing --start-time", errUsage, cmd.Name)
	}
	return timestamp.Parse(raw)
}

func optionalStatus(cmd *cli.Command) (model.Status, error) {
	raw := cmd.String("status")
	if raw == "" {
		return model.StatusUnset, nil
	}
	status, err := model.ParseStatus(raw)
	if err != nil {
		return model.StatusUnset, fmt.Errorf("%w: %v", errUsage, err)
	}
	return status, nil
}
