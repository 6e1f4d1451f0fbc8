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
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/trly/quadlet-gen/internal/config"
	"github.com/trly/quadlet-gen/internal/dependency"
	"github.com/trly/quadlet-gen/internal/history"
	"github.com/trly/quadlet-gen/internal/inspect"
	"github.com/trly/quadlet-gen/internal/quadlet"
	"github.com/trly/quadlet-gen/internal/validate"
)

// maxConcurrentInspections bounds the podman inspections run at once.
const maxConcurrentInspections = 4

// ErrGenerationFailed is returned when at least one unit could not be
// generated.
var ErrGenerationFailed = errors.New("unit generation failed")

// GenerateOptions holds generate command options.
type GenerateOptions struct {
	Kind        string
	Source      string
	OutputDir   string
	Record      bool
	WantedBy    []string
	NoInstall   bool
	Description string
	ImageFile   string
	PodFile     string
}

// GenerateDeps holds generate dependencies.
type GenerateDeps struct {
	CommonDeps
}

// GenerateCommand represents the generate command.
type GenerateCommand struct{}

// NewGenerateCommand creates a new GenerateCommand.
func NewGenerateCommand() *GenerateCommand {
	return &GenerateCommand{}
}

// GetCobraCommand returns the cobra command for generating units.
func (c *GenerateCommand) GetCobraCommand() *cobra.Command {
	var opts GenerateOptions

	generateCmd := &cobra.Command{
		Use:   "generate NAME...",
		Short: "Generate Quadlet units for existing podman resources",
		Long: `Generate Quadlet units for existing podman resources.

Each NAME is inspected and translated into the unit that recreates it. Units are
printed to stdout unless --output-dir is given. Containers of one batch are
ordered so that every container follows the containers it depends on.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := quadlet.ParseKind(opts.Kind); err != nil {
				return fmt.Errorf("invalid kind: %s, allowed kinds are: %v", opts.Kind, quadlet.Kinds)
			}
			app := getApp(cmd)
			return c.preflight(cmd.Context(), app, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			deps := c.buildDeps(app, cmd.OutOrStdout())
			return c.Run(cmd.Context(), app, opts, args, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	generateCmd.Flags().StringVarP(&opts.Kind, "kind", "k", string(quadlet.KindContainer), "Kind of resource to generate (container, pod, volume, network, image, kube)")
	generateCmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Inspection source (exec, podman, file); defaults to the configured source")
	generateCmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Write units into this directory instead of stdout")
	generateCmd.Flags().BoolVar(&opts.Record, "record", false, "Record generated units in the history database")
	generateCmd.Flags().StringSliceVar(&opts.WantedBy, "wanted-by", nil, "Install targets for the [Install] section")
	generateCmd.Flags().BoolVar(&opts.NoInstall, "no-install", false, "Omit the [Install] section")
	generateCmd.Flags().StringVar(&opts.Description, "description", "", "Unit description; systemd specifiers such as %N are expanded by systemd")
	generateCmd.Flags().StringVar(&opts.ImageFile, "image-file", "", "Image inspect JSON file used with --source file")
	generateCmd.Flags().StringVar(&opts.PodFile, "pod-file", "", "Pod inspect JSON file used with --source file")

	_ = generateCmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		kinds := make([]string, 0, len(quadlet.Kinds))
		for _, k := range quadlet.Kinds {
			kinds = append(kinds, string(k))
		}
		return kinds, cobra.ShellCompDirectiveNoFileComp
	})
	_ = generateCmd.RegisterFlagCompletionFunc("source", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return allowedSources, cobra.ShellCompDirectiveNoFileComp
	})

	return generateCmd
}

// preflight checks that the podman CLI runs when it is the inspection
// source.
func (c *GenerateCommand) preflight(ctx context.Context, app *App, opts GenerateOptions) error {
	source := opts.Source
	if source == "" {
		source = app.Config.Source
	}
	if source != config.SourceExec || quadlet.Kind(opts.Kind) == quadlet.KindKube {
		return nil
	}
	_, err := app.Validator.PodmanAvailable(ctx, app.Config.PodmanBinary)
	return err
}

// buildDeps creates production dependencies for the generate command.
func (c *GenerateCommand) buildDeps(app *App, out io.Writer) GenerateDeps {
	return GenerateDeps{
		CommonDeps: NewRootDeps(app, out),
	}
}

// generated is one rendered unit of a batch.
type generated struct {
	input    quadlet.Input
	fileName string
	content  string
}

// Run executes the generate command with injected dependencies.
func (c *GenerateCommand) Run(ctx context.Context, app *App, opts GenerateOptions, names []string, deps GenerateDeps) error {
	kind, err := quadlet.ParseKind(opts.Kind)
	if err != nil {
		return err
	}

	if opts.OutputDir != "" {
		app.Config.OutputDir = opts.OutputDir
	}

	src, err := app.Source(ctx, SourceOptions{Source: opts.Source, ImageFile: opts.ImageFile, PodFile: opts.PodFile})
	if err != nil {
		return err
	}

	inputs, err := loadInputs(ctx, src, kind, names)
	if err != nil {
		return err
	}

	ordered, graph, err := dependency.Order(inputs)
	if err != nil {
		return fmt.Errorf("ordering units: %w", err)
	}
	for _, ext := range graph.External() {
		deps.Logger.Warn("Dependency is not part of this batch", "service", ext)
	}

	units, failed := c.render(ordered, c.unitOptions(app, opts), deps)

	if app.Config.OutputDir == "" {
		printUnits(deps.Out, units)
	} else if err := c.writeUnits(app, units, deps); err != nil {
		return err
	}

	if opts.Record || app.Config.Record {
		if err := c.record(app, units, deps); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d units", ErrGenerationFailed, failed, len(ordered))
	}
	return nil
}

// unitOptions merges the command flags over the configured defaults.
func (c *GenerateCommand) unitOptions(app *App, opts GenerateOptions) quadlet.Options {
	unitOpts := quadlet.Options{
		Description: app.Config.Description,
		WantedBy:    app.Config.WantedBy,
	}
	if opts.Description != "" {
		unitOpts.Description = opts.Description
	}
	if len(opts.WantedBy) > 0 {
		unitOpts.WantedBy = opts.WantedBy
	}
	if opts.NoInstall || app.Config.NoInstall {
		unitOpts.WantedBy = nil
	}
	return unitOpts
}

// loadInputs inspects every name concurrently, keeping the argument order.
func loadInputs(ctx context.Context, src inspect.Source, kind quadlet.Kind, names []string) ([]quadlet.Input, error) {
	inputs := make([]quadlet.Input, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentInspections)
	for i, name := range names {
		g.Go(func() error {
			in, err := inspect.Load(gctx, src, kind, name)
			if err != nil {
				return fmt.Errorf("inspecting %s %s: %w", kind, name, err)
			}
			inputs[i] = in
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// render generates every unit of the batch. Mapping failures are printed
// and counted; the remaining units are still rendered.
func (c *GenerateCommand) render(inputs []quadlet.Input, opts quadlet.Options, deps GenerateDeps) ([]generated, int) {
	errorFmt := color.New(color.FgRed).SprintfFunc()

	var units []generated
	failed := 0
	for _, in := range inputs {
		fileName, err := quadlet.UnitFileName(in)
		if err == nil {
			var doc *quadlet.Document
			doc, err = quadlet.Build(in, opts)
			if err == nil {
				for _, key := range validate.SensitiveEnvironment(doc) {
					deps.Logger.Warn("Unit embeds a sensitive environment variable", "unit", fileName, "key", key)
				}
				units = append(units, generated{input: in, fileName: fileName, content: doc.String()})
				continue
			}
		}

		failed++
		name := cmp.Or(fileName, in.Name())
		if mapping := quadlet.MappingErrorsOf(err); len(mapping) > 0 {
			for _, me := range mapping {
				fmt.Fprintln(color.Error, errorFmt("%s: %s", name, me.Error()))
			}
			continue
		}
		fmt.Fprintln(color.Error, errorFmt("%s: %s", name, err.Error()))
	}
	return units, failed
}

// printUnits writes units to out. A lone unit is printed verbatim; several
// units are each introduced by a comment naming their file.
func printUnits(out io.Writer, units []generated) {
	if len(units) == 1 {
		_, _ = io.WriteString(out, units[0].content)
		return
	}
	for i, u := range units {
		if i > 0 {
			_, _ = io.WriteString(out, "\n")
		}
		_, _ = fmt.Fprintf(out, "# %s\n%s", u.fileName, u.content)
	}
}

// writeUnits writes changed units into the output directory.
func (c *GenerateCommand) writeUnits(app *App, units []generated, deps GenerateDeps) error {
	dir := app.FSService.UnitDirectory()
	for _, u := range units {
		path, err := app.FSService.UnitPath(u.input)
		if err != nil {
			return err
		}
		if path, err = validate.PathWithinBase(path, dir); err != nil {
			return err
		}

		if !app.FSService.HasUnitChanged(path, u.content) {
			_, _ = fmt.Fprintf(deps.Out, "unchanged %s\n", path)
			continue
		}
		if err := app.FSService.WriteUnitFile(path, u.content); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(deps.Out, "wrote %s\n", path)
	}
	return nil
}

// record stores the units whose content differs from their latest
// recorded generation.
func (c *GenerateCommand) record(app *App, units []generated, deps GenerateDeps) error {
	repo, err := app.History()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}

	for _, u := range units {
		entry, err := history.NewEntry(u.input, u.content)
		if err != nil {
			return err
		}
		changed, err := repo.Changed(entry.Name, entry.Kind, u.content)
		if err != nil {
			return fmt.Errorf("reading history of %s: %w", u.fileName, err)
		}
		if !changed {
			deps.Logger.Debug("Unit unchanged since last recorded generation", "unit", u.fileName)
			continue
		}
		if _, err := repo.Record(&entry); err != nil {
			return err
		}
		deps.Logger.Info("Recorded unit", "unit", u.fileName, "hash", shortHash(entry.ContentHash))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
