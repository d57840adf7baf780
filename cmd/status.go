package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/internal/session"
	"github.com/nightshift-run/nightshift/pkg/shiftcli"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

func status(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "load_config", err)
		return nil
	}

	if client, err := shiftcli.NewClient(cfg.SocketPath); err == nil {
		res, err := client.SessionStatus()
		if err != nil {
			common.PrintRuntimeErr(ctx, "status", "session_status", err)
			return nil
		}
		if res.RunActive {
			fmt.Println("A processing run is active.")
		}
		printCheckpoint(res.Checkpoint)
		return nil
	}

	// No daemon; the checkpoint file is the source of truth.
	cp, err := session.NewFileStore(cfg.Checkpoint).Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "load_checkpoint", err)
		return nil
	}
	printCheckpoint(cp)
	return nil
}

func printCheckpoint(cp *shiftlib.Checkpoint) {
	if cp == nil {
		fmt.Println("No session recorded yet.")
		return
	}
	fmt.Println(common.Beaut("session "+cp.SessionID, 48))
	if cp.Open() {
		fmt.Println("state:            open")
	} else {
		fmt.Printf("state:            closed (%s)\n", cp.CompletionReason)
	}
	fmt.Printf("started:          %s\n", cp.SessionStart.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("completed:        %d\n", len(cp.TasksCompleted))
	fmt.Printf("deferred:         %d\n", len(cp.TasksDeferred))
	fmt.Printf("failed:           %d\n", len(cp.TasksFailed))
	fmt.Printf("tokens used:      %d\n", cp.TokenBudgetUsed)
	fmt.Printf("tokens remaining: %d\n", cp.TokenBudgetRemaining)
	if cp.NextTaskID != nil {
		fmt.Printf("resume pointer:   %s\n", *cp.NextTaskID)
	}
}
