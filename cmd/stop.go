package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/pkg/shiftcli"
)

func stop(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "stop", "load_config", err)
		return nil
	}
	client, err := shiftcli.NewClient(cfg.SocketPath)
	if err != nil {
		common.PrintRuntimeErr(ctx, "stop", "new_client", err)
		return nil
	}
	if err := client.StopDaemon(); err != nil {
		common.PrintRuntimeErr(ctx, "stop", "stop_daemon", err)
		return nil
	}
	fmt.Println("Daemon stopped.")
	return nil
}
