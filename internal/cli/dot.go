package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/actorchart/internal/extensibility"
	"github.com/comalice/actorchart/internal/production"
)

// NewDotCommand creates the dot command.
func NewDotCommand(rootOpts *RootOptions) *cobra.Command {
	var current string
	cmd := &cobra.Command{
		Use:   "dot <definition.yaml>",
		Short: "Render a YAML machine definition as Graphviz DOT",
		Long: `Render a YAML machine definition as Graphviz DOT, or as a JSON
description with --format json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := extensibility.LoadDefinitionFile(args[0], extensibility.Implementations{}, extensibility.Lenient())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				data, err := production.ExportJSON(def)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			if current != "" {
				if _, ok := def.State(current); !ok {
					return fmt.Errorf("machine %q has no state %q", def.ID(), current)
				}
			}
			_, err = fmt.Fprint(out, production.ExportDOT(def, current))
			return err
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "highlight this state")
	return cmd
}
