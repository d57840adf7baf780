package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/internal/classify"
	"github.com/nightshift-run/nightshift/internal/pkgstore"
	"github.com/nightshift-run/nightshift/internal/validate"
	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftcli"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// queueImport schema-checks a producer task list and stores the accepted
// tasks as the pending queue. Rejected records are reported per field;
// one bad task never blocks the rest of the batch.
func queueImport(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return common.PrintErrWithCmdHelp(
			ctx,
			errors.New("no task file provided"),
		)
	} else if path == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "queue", "load_config", err)
		return nil
	}
	tasks, err := readTasks(path)
	if err != nil {
		common.PrintRuntimeErr(ctx, "queue", "read_tasks", err)
		return nil
	}

	cl := classify.New(cfg.InputDir, cfg.OutputDir)
	var accepted []*shiftlib.Task
	for _, task := range tasks {
		res := validate.ValidateTaskSchema(task)
		if !res.Passed {
			fmt.Printf("rejected %s: missing %v, invalid %v\n",
				task.TaskID, res.MissingFields, res.InvalidFields)
			continue
		}
		fmt.Printf("accepted %s (%s, %s)\n",
			task.TaskID, cl.MapJobType(task), cl.Classify(task))
		accepted = append(accepted, task)
	}

	if len(accepted) == 0 {
		fmt.Println("No tasks accepted.")
		return nil
	}
	if err := registerPackages(cfg, accepted); err != nil {
		common.PrintRuntimeErr(ctx, "queue", "register_packages", err)
		return nil
	}
	data, err := json.MarshalIndent(accepted, "", "  ")
	if err != nil {
		common.PrintRuntimeErr(ctx, "queue", "encode_tasks", err)
		return nil
	}
	if err := os.WriteFile(cfg.TasksFile, data, 0644); err != nil {
		common.PrintRuntimeErr(ctx, "queue", "write_tasks", err)
		return nil
	}
	fmt.Printf("%d task(s) queued in %s\n", len(accepted), cfg.TasksFile)
	return nil
}

// registerPackages opens a package row at queued for every accepted task.
// A task re-imported after a previous run keeps its existing row.
func registerPackages(cfg *config, tasks []*shiftlib.Task) error {
	store, err := pkgstore.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, task := range tasks {
		err := store.Create(&pkgstore.Package{ID: task.TaskID, Status: pkgstore.StatusQueued})
		if err != nil && !errors.Is(err, pkgstore.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

// queueList shows the pending queue, asking the daemon for its live view
// first and rebuilding from the stored task list when no daemon runs.
func queueList(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "queue", "load_config", err)
		return nil
	}

	var jobs []*shiftlib.JobSpec
	if client, err := shiftcli.NewClient(cfg.SocketPath); err == nil {
		res, err := client.QueueList()
		if err != nil {
			common.PrintRuntimeErr(ctx, "queue", "queue_list", err)
			return nil
		}
		jobs = res.Jobs
	} else {
		queue, err := loadQueue(cfg, logger.NewNopLogger())
		if err != nil {
			common.PrintRuntimeErr(ctx, "queue", "load_queue", err)
			return nil
		}
		jobs = queue.Snapshot()
	}

	if len(jobs) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}
	fmt.Printf("%-24s %-16s %-10s %-9s %s\n", "TASK", "TYPE", "CLASS", "PRIORITY", "EST")
	for _, j := range jobs {
		fmt.Printf("%-24s %-16s %-10s %-9d %.0fm\n",
			j.JobID, j.Type, j.Class, j.Priority, j.EstimatedDurationSec/60)
	}
	return nil
}
