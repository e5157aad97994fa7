// wrappergen is the build-time tool that synthesizes a tenant's instrumented
// entry module from a wrapper spec. It runs during deployment packaging,
// never on the request path.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nimbusdeck/edge/internal/wrappergen"
	"github.com/spf13/cobra"
)

var outputPath string

var rootCmd = &cobra.Command{
	Use:   "wrappergen <spec.json>",
	Short: "Generate a metering wrapper module from a wrapper spec",
	Long: `Reads a wrapper spec (originalModule, projectId, orgId, doClassNames,
vectorizeBindings) and writes the generated entry module that wraps the
tenant's exports with usage metering and quota-checked bindings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read spec: %w", err)
		}

		var spec wrappergen.Spec
		if err := json.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("failed to parse spec: %w", err)
		}

		source, err := wrappergen.Generate(spec)
		if err != nil {
			return err
		}

		if outputPath == "" {
			fmt.Print(source)
			return nil
		}

		if err := os.WriteFile(outputPath, []byte(source), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
