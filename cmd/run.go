package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/internal/backend"
	"github.com/nightshift-run/nightshift/internal/runner"
	"github.com/nightshift-run/nightshift/pkg/shiftcli"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

var (
	viaDaemon bool

	runFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "via-daemon, d",
			Usage:       "hand the run to the daemon instead of running in the foreground",
			Destination: &viaDaemon,
		},
	}
)

func run(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "load_config", err)
		return nil
	}
	if viaDaemon {
		return runViaDaemon(ctx, cfg)
	}
	return runForeground(ctx, cfg)
}

// runViaDaemon spawns the daemon when its socket is absent, then asks it
// to open a run window.
func runViaDaemon(ctx *cli.Context, cfg *config) error {
	err := shiftcli.EnsureDaemon(cfg.SocketPath, spawnDaemon)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "ensure_daemon", err)
		return nil
	}
	client, err := shiftcli.NewClient(cfg.SocketPath)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "new_client", err)
		return nil
	}
	if err := client.StartRun(); err != nil {
		common.PrintRuntimeErr(ctx, "run", "start_run", err)
		return nil
	}
	fmt.Println("Run started. Use \"nightshift status\" to follow progress.")
	return nil
}

func spawnDaemon() error {
	cmd := exec.Command(os.Args[0], "daemon")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// runForeground drains the queue in-process with a progress bar.
func runForeground(ctx *cli.Context, cfg *config) error {
	st, err := buildStack(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "build_stack", err)
		return nil
	}
	defer st.Close()

	queue, err := loadQueue(cfg, st.log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "load_queue", err)
		return nil
	}
	if queue.Len() == 0 {
		fmt.Println("Queue is empty; import tasks first with \"nightshift queue import\".")
		return nil
	}

	if _, err := st.sess.Start(""); err != nil {
		common.PrintRuntimeErr(ctx, "run", "start_session", err)
		return nil
	}

	p := mpb.New()
	bar := common.InitRunBar(p, int64(queue.Len()))
	recordPkg := st.proc.OnResult
	st.proc.OnResult = func(spec *shiftlib.JobSpec, res *backend.Result) {
		recordPkg(spec, res)
		bar.Increment()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := st.proc.Run(sigCtx, queue)
	bar.SetTotal(-1, true)
	p.Wait()
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "process_queue", err)
		return nil
	}
	printSummary(sum)
	return nil
}

func printSummary(sum *runner.Summary) {
	fmt.Printf("\nRun finished (%s)\n", sum.Reason)
	fmt.Printf("  completed:             %d\n", sum.Completed)
	fmt.Printf("  insufficient evidence: %d\n", sum.InsufficientEvidence)
	fmt.Printf("  parked:                %d\n", sum.Parked)
	fmt.Printf("  deferred:              %d\n", sum.Deferred)
	fmt.Printf("  failed:                %d\n", sum.Failed)
	if sum.Skipped > 0 {
		fmt.Printf("  skipped:               %d\n", sum.Skipped)
	}
	fmt.Printf("  success rate:          %.2f (target %.2f)\n", sum.SuccessRate, sum.SLATarget)
	if !sum.MetSLA {
		fmt.Println("  SLA target missed")
	}
}
