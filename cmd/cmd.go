package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "nightshift",
		HelpName:              "nightshift",
		Usage:                 "An unattended overnight batch processor for AI workloads.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "nightshift <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "start the long-lived nightshift process",
				Action:             daemonCmd,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DaemonDescription,
			},
			{
				Name:                   "run",
				Aliases:                []string{"r"},
				Usage:                  "process the task queue",
				Action:                 run,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            RunDescription,
				UseShortOptionHandling: true,
				Flags:                  runFlags,
			},
			{
				Name:               "resume",
				Usage:              "continue an interrupted session from its checkpoint",
				Action:             resume,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ResumeDescription,
			},
			{
				Name:               "status",
				Aliases:            []string{"s", "session"},
				Usage:              "show the current session and budget",
				Action:             status,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StatusDescription,
			},
			{
				Name:               "stop",
				Usage:              "shut the daemon down gracefully",
				Action:             stop,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StopDescription,
			},
			{
				Name:         "queue",
				Aliases:      []string{"q"},
				Usage:        "manage the task queue",
				OnUsageError: common.UsageErrorCallback,
				Description:  QueueDescription,
				Subcommands: []cli.Command{
					{
						Name:               "import",
						Usage:              "schema-check and store a task list",
						Action:             queueImport,
						OnUsageError:       common.UsageErrorCallback,
						CustomHelpTemplate: CMD_HELP_TEMPL,
						Description:        QueueDescription,
					},
					{
						Name:               "list",
						Usage:              "show the pending queue",
						Action:             queueList,
						OnUsageError:       common.UsageErrorCallback,
						CustomHelpTemplate: CMD_HELP_TEMPL,
						Description:        QueueDescription,
					},
				},
			},
			{
				Name:                   "validate",
				Usage:                  "run the validation pipeline over a package",
				Action:                 validateCmd,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            ValidateDescription,
				UseShortOptionHandling: true,
				Flags:                  validateFlags,
			},
			{
				Name:         "key",
				Usage:        "manage API credentials",
				OnUsageError: common.UsageErrorCallback,
				Description:  KeyDescription,
				Subcommands: []cli.Command{
					{
						Name:               "set",
						Usage:              "store an API key",
						Action:             keySet,
						OnUsageError:       common.UsageErrorCallback,
						CustomHelpTemplate: CMD_HELP_TEMPL,
						Description:        KeyDescription,
					},
					{
						Name:               "delete",
						Usage:              "remove a stored API key",
						Action:             keyDelete,
						OnUsageError:       common.UsageErrorCallback,
						CustomHelpTemplate: CMD_HELP_TEMPL,
						Description:        KeyDescription,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of nightshift",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:                 status,
		HideHelp:               true,
		HideVersion:            true,
		UseShortOptionHandling: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
