package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/pkg/credman"
)

func keyManager(ctx *cli.Context) (*credman.Manager, string, error) {
	provider := ctx.Args().First()
	if provider == "" {
		provider = DEF_PROVIDER
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	return credman.NewManager(cfg.ConfigDir), provider, nil
}

func keySet(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		return common.PrintErrWithCmdHelp(
			ctx,
			errors.New("usage: key set <provider> <api-key>"),
		)
	}
	cm, provider, err := keyManager(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "key", "load_config", err)
		return nil
	}
	if err := cm.Set(provider, args.Get(1)); err != nil {
		common.PrintRuntimeErr(ctx, "key", "set", err)
		return nil
	}
	fmt.Printf("Stored %s API key.\n", provider)
	return nil
}

func keyDelete(ctx *cli.Context) error {
	cm, provider, err := keyManager(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "key", "load_config", err)
		return nil
	}
	if err := cm.Delete(provider); err != nil {
		common.PrintRuntimeErr(ctx, "key", "delete", err)
		return nil
	}
	fmt.Printf("Removed %s API key.\n", provider)
	return nil
}
