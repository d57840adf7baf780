package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/nightshift-run/nightshift/cmd/common"
	"github.com/nightshift-run/nightshift/internal/decision"
	"github.com/nightshift-run/nightshift/internal/pkgstore"
	"github.com/nightshift-run/nightshift/internal/validate"
)

var (
	codeFile     string
	citationFile string

	validateFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "code, c",
			Usage:       "run the generated-code gate over a file instead of a package",
			Destination: &codeFile,
		},
		cli.StringFlag{
			Name:        "citations, s",
			Usage:       "run the citation gate over a summary file instead of a package",
			Destination: &citationFile,
		},
	}
)

func validateCmd(ctx *cli.Context) error {
	if codeFile != "" {
		return validateCode(ctx)
	}
	if citationFile != "" {
		return validateCitations(ctx)
	}

	pkgID := ctx.Args().First()
	if pkgID == "" {
		return common.PrintErrWithCmdHelp(
			ctx,
			errors.New("no package id provided"),
		)
	} else if pkgID == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "validate", "load_config", err)
		return nil
	}
	store, err := pkgstore.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		common.PrintRuntimeErr(ctx, "validate", "open_store", err)
		return nil
	}
	defer store.Close()

	p, err := store.Get(pkgID)
	if err != nil {
		common.PrintRuntimeErr(ctx, "validate", "get_package", err)
		return nil
	}
	tier := decision.New(cfg.decisionConfig()).SelectValidationLevel(p.Status)
	if tier == decision.TierV0 {
		fmt.Printf("Package %s is at status %s and has no execution to certify yet.\n",
			pkgID, p.Status)
		return nil
	}

	fs := afero.NewOsFs()
	pipeline := validate.NewPipeline(
		store,
		validate.NewExecutionValidator(store),
		validate.NewConformanceValidator(fs, store, cfg.ConfigDir, cfg.OutputDir),
		nil,
	)
	res, err := pipeline.RunFull(pkgID)
	if err != nil {
		common.PrintRuntimeErr(ctx, "validate", "run_pipeline", err)
		return nil
	}

	printReport("execution", res.V1)
	if res.V2 != nil {
		printReport("conformance", res.V2)
	}
	if res.Passed {
		fmt.Printf("Package %s validated.\n", pkgID)
	} else {
		fmt.Printf("Package %s failed validation.\n", pkgID)
	}
	return nil
}

func printReport(tier string, r *validate.Report) {
	for _, c := range r.Checks {
		mark := "ok"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Printf("%-12s %-20s %s", tier, c.Name, mark)
		if c.Message != "" {
			fmt.Printf("  (%s)", c.Message)
		}
		fmt.Println()
	}
}

func validateCode(ctx *cli.Context) error {
	gate := validate.NewCodeGate(afero.NewOsFs(), nil)
	r, err := gate.Check(context.Background(), codeFile)
	if err != nil {
		common.PrintRuntimeErr(ctx, "validate", "code_gate", err)
		return nil
	}
	printReport("code", r)
	if !r.Passed {
		fmt.Printf("%s failed the code gate.\n", codeFile)
	}
	return nil
}

func validateCitations(ctx *cli.Context) error {
	data, err := os.ReadFile(citationFile)
	if err != nil {
		common.PrintRuntimeErr(ctx, "validate", "read_summary", err)
		return nil
	}
	res := validate.NewCitationGate().Check(string(data))
	if res.InsufficientEvidence {
		fmt.Println("Summary declares insufficient evidence; accepted as-is.")
		return nil
	}
	if res.Success {
		fmt.Printf("Citation gate passed with %d cited lines.\n", res.CitationCount)
		return nil
	}
	fmt.Printf("Citation gate failed: %s\n", res.Message)
	return nil
}
