/*
Copyright © 2025 Travis Lyons travis.lyons@gmail.com

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/trly/quadlet-gen/internal/inspect"
	"github.com/trly/quadlet-gen/internal/quadlet"
)

// ErrUnitDiffers is returned when an existing unit differs from the unit
// generated for the same resource.
var ErrUnitDiffers = errors.New("unit differs from generated unit")

// DiffOptions holds diff command options.
type DiffOptions struct {
	Kind      string
	Source    string
	ImageFile string
	PodFile   string
	WantedBy  []string
	NoInstall bool
}

// DiffDeps holds diff dependencies.
type DiffDeps struct {
	CommonDeps
}

// DiffCommand represents the diff command.
type DiffCommand struct{}

// NewDiffCommand creates a new DiffCommand.
func NewDiffCommand() *DiffCommand {
	return &DiffCommand{}
}

// GetCobraCommand returns the cobra command for comparing an existing unit
// with a freshly generated one.
func (c *DiffCommand) GetCobraCommand() *cobra.Command {
	var opts DiffOptions

	diffCmd := &cobra.Command{
		Use:   "diff NAME UNITFILE",
		Short: "Compare an existing unit file with the unit generated for a resource",
		Long: `Compare an existing unit file with the unit generated for a resource.

Directives only in UNITFILE are printed with "-", directives only in the generated
unit with "+". The command fails when the units differ.`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if _, err := quadlet.ParseKind(opts.Kind); err != nil {
				return fmt.Errorf("invalid kind: %s, allowed kinds are: %v", opts.Kind, quadlet.Kinds)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			deps := DiffDeps{CommonDeps: NewRootDeps(app, cmd.OutOrStdout())}
			return c.Run(cmd.Context(), app, opts, args[0], args[1], deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	diffCmd.Flags().StringVarP(&opts.Kind, "kind", "k", string(quadlet.KindContainer), "Kind of resource to compare (container, pod, volume, network, image, kube)")
	diffCmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Inspection source (exec, podman, file); defaults to the configured source")
	diffCmd.Flags().StringVar(&opts.ImageFile, "image-file", "", "Image inspect JSON file used with --source file")
	diffCmd.Flags().StringVar(&opts.PodFile, "pod-file", "", "Pod inspect JSON file used with --source file")
	diffCmd.Flags().StringSliceVar(&opts.WantedBy, "wanted-by", nil, "Install targets for the [Install] section")
	diffCmd.Flags().BoolVar(&opts.NoInstall, "no-install", false, "Omit the [Install] section")

	return diffCmd
}

// Run executes the diff command with injected dependencies.
func (c *DiffCommand) Run(ctx context.Context, app *App, opts DiffOptions, name, unitFile string, deps DiffDeps) error {
	kind, err := quadlet.ParseKind(opts.Kind)
	if err != nil {
		return err
	}

	src, err := app.Source(ctx, SourceOptions{Source: opts.Source, ImageFile: opts.ImageFile, PodFile: opts.PodFile})
	if err != nil {
		return err
	}

	in, err := inspect.Load(ctx, src, kind, name)
	if err != nil {
		return fmt.Errorf("inspecting %s %s: %w", kind, name, err)
	}

	unitOpts := (&GenerateCommand{}).unitOptions(app, GenerateOptions{WantedBy: opts.WantedBy, NoInstall: opts.NoInstall})
	want, err := quadlet.Build(in, unitOpts)
	if err != nil {
		return err
	}

	f, err := os.Open(unitFile) //nolint:gosec // reading a unit file named by the user
	if err != nil {
		return fmt.Errorf("opening unit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	have, err := quadlet.ParseUnit(f)
	if err != nil {
		return fmt.Errorf("%s: %w", unitFile, err)
	}

	changes := diffDocuments(have, want)
	if len(changes) == 0 {
		deps.Logger.Debug("Unit matches generated unit", "file", unitFile)
		return nil
	}

	printChanges(deps.Out, changes)
	return fmt.Errorf("%w: %s", ErrUnitDiffers, unitFile)
}

// change is one line of a directive diff.
type change struct {
	op   byte
	line string
}

// unitLines flattens doc into section headers and Key=Value lines. Empty
// sections are not rendered and are skipped.
func unitLines(doc *quadlet.Document) []string {
	var lines []string
	for _, s := range doc.Sections {
		if len(s.Directives) == 0 {
			continue
		}
		lines = append(lines, "["+s.Name+"]")
		for _, d := range s.Directives {
			lines = append(lines, d.Key+"="+d.Value)
		}
	}
	return lines
}

// diffDocuments returns the line changes turning have into want, or nil
// when they are equal. Unchanged lines are kept for context.
func diffDocuments(have, want *quadlet.Document) []change {
	a, b := unitLines(have), unitLines(want)

	// lcs[i][j] is the longest common subsequence of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	var changes []change
	differs := false
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && j < len(b) && a[i] == b[j]:
			changes = append(changes, change{' ', a[i]})
			i++
			j++
		case i < len(a) && (j == len(b) || lcs[i+1][j] >= lcs[i][j+1]):
			changes = append(changes, change{'-', a[i]})
			differs = true
			i++
		default:
			changes = append(changes, change{'+', b[j]})
			differs = true
			j++
		}
	}

	if !differs {
		return nil
	}
	return changes
}

func printChanges(out io.Writer, changes []change) {
	removed := color.New(color.FgRed).SprintFunc()
	added := color.New(color.FgGreen).SprintFunc()

	for _, ch := range changes {
		line := string(ch.op) + " " + ch.line
		switch ch.op {
		case '-':
			line = removed(line)
		case '+':
			line = added(line)
		}
		_, _ = fmt.Fprintln(out, line)
	}
}
