package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the widgets in the widgets directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, err := a.toolkit()
			if err != nil {
				return err
			}
			defs := kit.Registry().List()

			type row struct {
				Key      string `json:"key"`
				Name     string `json:"name"`
				Version  string `json:"version"`
				Category string `json:"category,omitempty"`
				Kind     string `json:"kind"`
			}
			rows := []row{}
			for _, def := range defs {
				if category != "" && def.Category != category {
					continue
				}
				kind := "filter"
				if def.Renderable() {
					kind = kit.Service().Select(renderRequest(def.Template, def.Engine))
				}
				rows = append(rows, row{def.Key, def.Name, def.Version, def.Category, kind})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tVERSION\tCATEGORY\tKIND")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key, r.Name, r.Version, r.Category, r.Kind)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list widgets of this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
