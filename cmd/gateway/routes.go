package main

import (
	"fmt"

	"github.com/brainstudio/minutes-backend/internal/upstream"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newRoutesCommand(ctx *commandContext) *cobra.Command {
	var matchPath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "上流APIのルート一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			routeTable, err := upstream.DefaultTable(cfg)
			if err != nil {
				return err
			}

			routes := routeTable.Routes()
			if matchPath != "" {
				route, err := routeTable.Match(matchPath)
				if err != nil {
					return err
				}
				routes = []*upstream.Route{route}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderRoutes(routes))
			return nil
		},
	}

	cmd.Flags().StringVar(&matchPath, "match", "", "指定したパスを処理するルートだけを表示する")
	return cmd
}

// renderRoutes はルート一覧を表形式の文字列にする。APIキーの値は含めない。
func renderRoutes(routes []*upstream.Route) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"NAME", "PREFIX", "TARGET", "HEADER", "KEY"})
	for _, r := range routes {
		tw.AppendRow(table.Row{
			r.Name,
			r.Prefix,
			r.Target.String(),
			r.CredentialHeader,
			lo.Ternary(r.HasSecret(), "set", "missing"),
		})
	}
	return tw.Render()
}
