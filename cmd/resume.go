package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/internal/session"
)

func resume(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "resume", "load_config", err)
		return nil
	}

	cp, err := session.NewFileStore(cfg.Checkpoint).Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "resume", "load_checkpoint", err)
		return nil
	}
	if cp == nil || !cp.Open() {
		fmt.Println("No interrupted session to resume; use \"nightshift run\" to start fresh.")
		return nil
	}

	fmt.Printf("Resuming session %s: %d completed, %d tokens remaining\n",
		cp.SessionID, len(cp.TasksCompleted), cp.TokenBudgetRemaining)
	if cp.NextTaskID != nil {
		fmt.Printf("Next task: %s\n", *cp.NextTaskID)
	}
	return runForeground(ctx, cfg)
}
