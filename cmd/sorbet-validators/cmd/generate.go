package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sorbet-validators/internal/generator"
	"sorbet-validators/internal/ir"
)

var (
	generateIR  string
	generateOut string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate Ruby validators from an IR file",
	Long: `Reads the IR (YAML or JSON), builds the validators and writes
validation_error.rb and validators.rb under --out.

Namespace, modules, subfolder, runtime checks, rubocop and require
settings come from the basketry and sorbet config sections.`,
	Example: "  sorbet-validators generate --ir api.yaml --out ./lib",
	RunE:    runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateIR, "ir", "", "IR file (yaml or json)")
	generateCmd.Flags().StringVar(&generateOut, "out", ".", "output directory")
	_ = generateCmd.MarkFlagRequired("ir")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	svc, err := ir.Load(generateIR, ir.LoadOptions{StrictRules: cfg.IR.StrictRules, Logger: log})
	if err != nil {
		return fmt.Errorf("failed to load IR: %w", err)
	}

	genCfg := generator.FromConfig(cfg)
	genCfg.Files.Source = filepath.Base(generateIR)

	res, err := generator.Build(svc, genCfg)
	if err != nil {
		return fmt.Errorf("failed to generate: %w", err)
	}
	if err := generator.WriteFiles(generateOut, res.Files); err != nil {
		return fmt.Errorf("failed to write files: %w", err)
	}

	for _, f := range res.Files {
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(generateOut, filepath.FromSlash(f.Name())))
	}
	log.WithFields(logrus.Fields{
		"title":      svc.Title,
		"validators": res.Set.Len(),
		"out":        generateOut,
	}).Info("validators generated")
	return nil
}
