package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/audit"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditlog"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/capture"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/clock"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/metrics"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/redis"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/shell"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/tokenstore"
)

const defaultSteps = "screen:Dashboard,background,active,screenshot,record:on,record:off"

type simulateOptions struct {
	platform          string
	nativeScreenshot  bool
	recordingListener bool
	steps             string
	interval          time.Duration
	token             string
}

func newSimulateCmd(a *app) *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive the capture pipeline with a simulated native layer",
		Long: `Run the app shell against a simulated capture gateway and post the
resulting audit records to the configured API (for example a local sink).

Steps are comma separated:
  screen:<name>   track a screen view
  action:<name>   log a user action
  background      app leaves the foreground
  inactive        app becomes inactive
  active          app returns to the foreground
  screenshot      the OS reports a screenshot
  record:on|off   the OS reports recording start or stop`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSimulate(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.platform, "platform", string(capture.PlatformIOS), "Simulated platform (ios, android, other)")
	cmd.Flags().BoolVar(&opts.nativeScreenshot, "native-screenshot", true, "Platform offers a screenshot listener")
	cmd.Flags().BoolVar(&opts.recordingListener, "recording-listener", true, "Platform offers a recording state listener")
	cmd.Flags().StringVar(&opts.steps, "steps", defaultSteps, "Comma separated steps to run")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Pause between steps")
	cmd.Flags().StringVar(&opts.token, "token", "", "Auth token to use instead of the stored one")
	return cmd
}

func (a *app) runSimulate(ctx context.Context, opts simulateOptions) error {
	m := metrics.New(prometheus.NewRegistry())
	clk := clock.Real()

	poster, err := auditlog.FromConfig(a.cfg, a.logger, m, clk)
	if err != nil {
		return err
	}

	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}
	tokens, err := tokenstore.FromConfig(a.cfg, client, a.logger)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	if opts.token != "" {
		if err := tokens.Set(ctx, tokenstore.AuthTokenKey, opts.token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}

	gw := capture.NewSimulatedGateway(capture.Capabilities{
		Platform:                    capture.Platform(opts.platform),
		HasNativeScreenshotListener: opts.nativeScreenshot,
		HasRecordingStateListener:   opts.recordingListener,
	})

	sh, err := shell.New(a.cfg, shell.Deps{
		Gateway:   gw,
		Lifecycle: gw,
		Poster:    poster,
		Tokens:    tokens,
	},
		shell.WithLogger(a.logger),
		shell.WithMetrics(m),
		shell.WithClock(clk),
		shell.WithAuditLogsInvalidator(func() { a.logger.Debug("audit logs invalidated") }),
		shell.WithCoverChange(func(visible bool) { a.logger.Info("blocker cover", "visible", visible) }),
	)
	if err != nil {
		return err
	}

	sh.Start(ctx)
	defer sh.Stop(context.WithoutCancel(ctx))

	for _, step := range strings.Split(opts.steps, ",") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runStep(ctx, sh, gw, strings.TrimSpace(step)); err != nil {
			return err
		}
		if opts.interval > 0 {
			time.Sleep(opts.interval)
		}
	}
	return nil
}

func runStep(ctx context.Context, sh *shell.Shell, gw *capture.SimulatedGateway, step string) error {
	name, arg, _ := strings.Cut(step, ":")
	switch name {
	case "screen":
		sh.TrackScreen(ctx, arg)
	case "action":
		sh.LogAction(ctx, arg, audit.Options{Description: "simulated action"})
	case "background":
		gw.Transition(capture.StateBackground)
	case "inactive":
		gw.Transition(capture.StateInactive)
	case "active":
		gw.Transition(capture.StateActive)
	case "screenshot":
		gw.TakeScreenshot()
	case "record":
		gw.SetRecording(arg == "on")
	case "":
	default:
		return fmt.Errorf("unknown step %q", step)
	}
	return nil
}
