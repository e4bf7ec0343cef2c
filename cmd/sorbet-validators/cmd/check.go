package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sorbet-validators/internal/dryrun"
	"sorbet-validators/internal/generator"
	"sorbet-validators/internal/guard"
	"sorbet-validators/internal/ir"
)

var (
	checkIR        string
	checkValidator string
	checkInput     string
	checkFail      bool
)

// errValidationFailed возвращается с --fail, если валидатор нашел ошибки
var errValidationFailed = errors.New("validation failed")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a validator against JSON or YAML input",
	Long: `Builds the validators for the IR and interprets one of them over the
input, exactly as the generated Ruby would run it. Prints the collected
errors as JSON.

For method validators the input is an object keyed by parameter name.
For type and enum validators the input is the value itself.
--input accepts inline JSON/YAML or @path to read a file.`,
	Example: `  sorbet-validators check --ir api.yaml --validator validate_gizmo --input '{"id": "g1"}'`,
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkIR, "ir", "", "IR file (yaml or json)")
	checkCmd.Flags().StringVar(&checkValidator, "validator", "", "validator name, e.g. validate_gizmo")
	checkCmd.Flags().StringVar(&checkInput, "input", "null", "input document or @file")
	checkCmd.Flags().BoolVar(&checkFail, "fail", false, "exit with an error when validation errors are found")
	_ = checkCmd.MarkFlagRequired("ir")
	_ = checkCmd.MarkFlagRequired("validator")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	svc, err := ir.Load(checkIR, ir.LoadOptions{StrictRules: cfg.IR.StrictRules, Logger: log})
	if err != nil {
		return fmt.Errorf("failed to load IR: %w", err)
	}

	res, err := generator.Build(svc, generator.FromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build validators: %w", err)
	}

	input, err := readInput(checkInput)
	if err != nil {
		return err
	}

	errs, err := dryrun.New(res.Set).RunDocument(checkValidator, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Errors []guard.ErrorRecord `json:"errors"`
	}{errs}); err != nil {
		return err
	}

	if checkFail && len(errs) > 0 {
		return fmt.Errorf("%w: %d error(s)", errValidationFailed, len(errs))
	}
	return nil
}

func readInput(s string) ([]byte, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return []byte(s), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}
