package internal

import (
	"fmt"
	"io"

	"github.com/goplus/vbuild/internal/report"
	"github.com/goplus/vbuild/variant"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved variant configuration",
	Long:  `Resolve applies the project's variant block and --set overrides to the defaults and prints the result.`,
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	cfg, err := variant.Resolver{ProjectDir: p.Dir}.Resolve(p.Overrides)
	if err != nil {
		newLogger(cmd.ErrOrStderr()).Error("invalid variant configuration", report.KindKey, report.KindInvalidConfig, "error", err)
		return fmt.Errorf("resolve: %w", err)
	}
	return printYAML(cmd.OutOrStdout(), viewOf(cfg))
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
