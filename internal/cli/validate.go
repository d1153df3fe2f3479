package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/actorchart/internal/extensibility"
	"github.com/comalice/actorchart/internal/primitives"
)

// ValidationResult is the JSON output of validate.
type ValidationResult struct {
	Valid       bool   `json:"valid"`
	File        string `json:"file"`
	Machine     string `json:"machine,omitempty"`
	States      int    `json:"states,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <definition.yaml>",
		Short: "Check a YAML machine definition",
		Long: `Parse and validate a YAML machine definition.

Named guards, actions and activities cannot be resolved from the command
line and are accepted as placeholders unless --strict is given. Built-in
actions (raise:, emit:, ...) and guard expressions are always checked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0], strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on guards, actions and activities that are not built in")
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string, strict bool) error {
	var loadOpts []extensibility.LoadOption
	if !strict {
		loadOpts = append(loadOpts, extensibility.Lenient())
	}
	def, err := extensibility.LoadDefinitionFile(path, extensibility.Implementations{}, loadOpts...)

	res := ValidationResult{Valid: err == nil, File: path}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Machine = def.ID()
		res.States = len(def.StateIDs())
		res.Fingerprint = def.Fingerprint()
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
	} else if err == nil {
		fmt.Fprintf(out, "✓ %s: machine %q, %d states, %d global handlers\n", path, def.ID(), res.States, len(def.GlobalEvents()))
	} else {
		fmt.Fprintf(out, "✗ %s: %v\n", path, err)
	}

	if err != nil {
		if primitives.IsDefinitionError(err) {
			return fmt.Errorf("invalid definition: %w", err)
		}
		return err
	}
	return nil
}
