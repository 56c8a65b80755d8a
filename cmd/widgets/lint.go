package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	core "github.com/goliatone/go-widgets/internal/mustache"
	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/render"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

// lintProblem is one failure found by lint.
type lintProblem struct {
	Source string
	Err    error
}

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [dir...]",
		Short: "Validate widget definitions and compile their templates",
		Long: `lint validates every definition file against the widget schema, checks
parameter defaults and visibility conditions, and compiles each template with
the engine that would render it. Directories default to the configured
widgets directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{a.cfg.WidgetsDir}
			}
			svc := render.New(render.WithLogger(a.logger))

			var problems []lintProblem
			checked := 0
			for _, dir := range dirs {
				n, found, err := lintDir(os.DirFS(dir), svc)
				if err != nil {
					return fmt.Errorf("lint %s: %w", dir, err)
				}
				checked += n
				for _, p := range found {
					p.Source = path.Join(dir, p.Source)
					problems = append(problems, p)
				}
			}

			out := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintf(out, "FAIL %s: %v\n", p.Source, p.Err)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) in %d definition(s)", len(problems), checked)
			}
			fmt.Fprintf(out, "ok %d definition(s)\n", checked)
			return nil
		},
	}
}

// lintDir checks every definition file of fsys and keeps going after
// failures.
func lintDir(fsys fs.FS, svc *render.Service) (int, []lintProblem, error) {
	registry := widgets.NewRegistry()
	var problems []lintProblem
	checked := 0

	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionPath(p) {
			return nil
		}
		checked++
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		def, err := widgets.Parse(data, p)
		if err != nil {
			problems = append(problems, lintProblem{Source: p, Err: err})
			return nil
		}
		if err := registry.Register(def); err != nil {
			problems = append(problems, lintProblem{Source: p, Err: err})
			return nil
		}
		if err := lintDefinition(def, svc); err != nil {
			problems = append(problems, lintProblem{Source: p, Err: err})
		}
		return nil
	})
	return checked, problems, err
}

func lintDefinition(def widgets.Definition, svc *render.Service) error {
	if _, err := def.Context(nil, ""); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if _, err := def.Visible(nil); err != nil {
		return fmt.Errorf("when: %w", err)
	}
	if !def.Renderable() {
		return nil
	}

	switch svc.Select(renderRequest(def.Template, def.Engine)) {
	case ejs.Name:
		opts := ejs.DefaultOptions()
		opts.Filename = def.Source
		if _, err := ejs.Compile(def.Template, opts); err != nil {
			return err
		}
	default:
		if _, err := core.Parse(def.Template); err != nil {
			return fmt.Errorf("template: %w", err)
		}
	}
	return nil
}

func isDefinitionPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func renderRequest(template, engine string) render.Request {
	return render.Request{Template: template, Engine: engine}
}
