package internal

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/goplus/vbuild/internal/build"
	"github.com/goplus/vbuild/internal/project"
	"github.com/goplus/vbuild/internal/registry"
	"github.com/goplus/vbuild/pkgs/buildsys/javac"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile the variant and attach it to bundle targets",
	Long:  `Build resolves the variant, compiles it against the main classpath and prints the updated bundle targets.`,
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	_, res, err := buildProject(cmd)
	if err != nil {
		return err
	}
	if err := printYAML(cmd.OutOrStdout(), planOf(res)); err != nil {
		return err
	}
	printStatus(cmd.ErrOrStderr(), res)
	return nil
}

// buildProject loads the project and runs all build steps.
func buildProject(cmd *cobra.Command) (*project.Project, *build.Result, error) {
	p, err := loadProject()
	if err != nil {
		return nil, nil, err
	}
	// stdout carries the plan; compiler chatter goes to stderr or nowhere.
	tool := javac.New().Stdout(io.Discard)
	if verbose {
		tool.Stdout(cmd.ErrOrStderr())
	}
	c, err := build.NewCoordinator(build.Options{
		ProjectDir: p.Dir,
		Compiler:   tool,
		Registry:   p.Registry,
		Logger:     newLogger(cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, nil, err
	}
	res, err := c.Run(cmd.Context(), p.Overrides, p.Main, p.Targets)
	if err != nil {
		return nil, nil, err
	}
	return p, res, nil
}

type artifactView struct {
	Task   string `yaml:"task"`
	Dir    string `yaml:"dir"`
	Exists bool   `yaml:"exists"`
}

type plan struct {
	Variant  configView         `yaml:"variant"`
	Artifact artifactView       `yaml:"artifact"`
	Targets  []*registry.Target `yaml:"targets"`
	Notices  []string           `yaml:"notices,omitempty"`
}

func planOf(res *build.Result) plan {
	p := plan{
		Variant: viewOf(res.Config),
		Artifact: artifactView{
			Task:   res.Artifact.Task,
			Dir:    res.Artifact.Dir,
			Exists: res.Artifact.Exists,
		},
		Targets: res.Targets,
	}
	for _, n := range res.Notices {
		p.Notices = append(p.Notices, n.Error())
	}
	return p
}

func printStatus(w io.Writer, res *build.Result) {
	ok := color.New(color.FgGreen, color.Bold)
	if len(res.Notices) == 0 {
		ok.Fprintf(w, "BUILD SUCCESSFUL: %s\n", res.Artifact.Task)
		return
	}
	ok.Fprintf(w, "BUILD SUCCESSFUL: %s ", res.Artifact.Task)
	color.New(color.FgYellow).Fprintf(w, "(%s)\n", plural(len(res.Notices), "notice"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
