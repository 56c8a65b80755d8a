package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	widgets "github.com/goliatone/go-widgets"
	"github.com/goliatone/go-widgets/pkg/preview"
	"github.com/goliatone/go-widgets/pkg/prompt"
	defs "github.com/goliatone/go-widgets/pkg/widgets"
)

type renderFlags struct {
	set         []string
	lang        string
	engine      string
	interactive bool
	page        bool
	output      string
}

func newRenderCmd(a *app) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render <widget-key|definition-file|template-file>",
		Short: "Render a widget or a template file",
		Long: `render renders a registered widget by key, a definition file (.yaml, .yml,
.json) or a raw template file. Values are passed with --set name=value; the
engine of a raw template is picked from its content unless --engine is set.`,
		Example: `  widgets render video --set url=https://youtu.be/aqz-KE-bpKQ --lang es
  widgets render ./card.yaml --interactive --page -o card.html
  widgets render ./snippet.ejs --set title=Hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, a, f, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVar(&f.set, "set", nil, "parameter value as name=value (repeatable)")
	flags.StringVar(&f.lang, "lang", "", "render language (default from config)")
	flags.StringVar(&f.engine, "engine", "", "force the engine: mustache or ejs")
	flags.BoolVarP(&f.interactive, "interactive", "i", false, "prompt for parameter values")
	flags.BoolVar(&f.page, "page", false, "wrap the widget in a preview page")
	flags.StringVarP(&f.output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runRender(cmd *cobra.Command, a *app, f *renderFlags, target string) error {
	values, err := parseSet(f.set)
	if err != nil {
		return err
	}
	lang := f.lang
	if lang == "" {
		lang = a.cfg.Lang
	}
	kit, err := a.toolkit()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var html string
	if info, statErr := os.Stat(target); statErr == nil && !info.IsDir() && !isDefinitionPath(target) {
		src, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		if _, ok := values[defs.LangKey]; !ok {
			values[defs.LangKey] = lang
		}
		html, err = kit.RenderTemplate(ctx, widgets.Request{Template: string(src), Data: values, Engine: f.engine})
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), f.output, html)
	}

	def, err := resolveDefinition(kit, target)
	if err != nil {
		return err
	}
	if f.engine != "" {
		def.Engine = f.engine
	}
	if f.interactive {
		values, err = prompt.Collect(ctx, &prompt.SurveyDriver{Out: cmd.ErrOrStderr()}, def, values)
		if err != nil {
			return err
		}
	}

	html, err = defs.Render(ctx, kit.Service(), def, values, lang, kit.Translations())
	if err != nil {
		return err
	}
	if f.page {
		html, err = renderPage(kit, def, values, lang, html)
		if err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), f.output, html)
}

func resolveDefinition(kit *widgets.Toolkit, target string) (defs.Definition, error) {
	if isDefinitionPath(target) {
		data, err := os.ReadFile(target)
		if err == nil {
			return defs.Parse(data, target)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return defs.Definition{}, err
		}
	}
	return kit.Registry().Lookup(target)
}

func renderPage(kit *widgets.Toolkit, def defs.Definition, values map[string]any, lang, html string) (string, error) {
	ctx, err := def.Context(values, lang)
	if err != nil {
		return "", err
	}
	visible, err := def.Visible(ctx)
	if err != nil {
		return "", err
	}
	renderer, err := preview.New()
	if err != nil {
		return "", err
	}
	page := preview.NewPage(def, html, ctx, visible)
	page.Engine = kit.Service().Select(renderRequest(def.Template, def.Engine))
	return renderer.Render(page)
}

// parseSet turns name=value pairs into a values map. Later pairs win.
func parseSet(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected name=value", pair)
		}
		values[name] = value
	}
	return values, nil
}

func writeOutput(stdout io.Writer, file, html string) error {
	if file == "" {
		_, err := fmt.Fprintln(stdout, html)
		return err
	}
	return os.WriteFile(file, []byte(html), 0o644)
}
