package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/internal/daemon"
	"github.com/nightshift-run/nightshift/internal/runner"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

func daemonCmd(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", err)
		return nil
	}
	st, err := buildStack(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "build_stack", err)
		return nil
	}
	defer st.Close()

	queue, err := loadQueue(cfg, st.log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_queue", err)
		return nil
	}

	d := daemon.New(
		&daemon.Config{
			SocketPath:      cfg.SocketPath,
			ConfigDir:       cfg.ConfigDir,
			WindowCron:      cfg.WindowCron,
			ShutdownTimeout: DEF_SHUTDOWN_TIMEOUT,
			Version:         ctx.App.Version,
		},
		&daemon.Dependencies{
			RunFunc: func(runCtx context.Context) (*runner.Summary, error) {
				// Reload the task list for every window; tasks imported
				// while the daemon was idle must make this run.
				if err := refillQueue(cfg, st.log, queue); err != nil {
					return nil, err
				}
				if _, err := st.sess.Start(""); err != nil {
					return nil, err
				}
				return st.proc.Run(runCtx, queue)
			},
			SessionStatus: func() *shiftlib.Checkpoint {
				return st.sess.Checkpoint()
			},
			Queue: queue,
		},
		st.log,
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Start(sigCtx)
}
