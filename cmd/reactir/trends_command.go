package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reactir/internal/config"
	"reactir/internal/store"
)

func newTrendsCommand(ctx *commandContext) *cobra.Command {
	var documentID int64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "List trends with their committed row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				trends, err := st.ListTrends(cmd.Context(), documentID)
				if err != nil {
					return fmt.Errorf("list trends: %w", err)
				}
				views := make([]trendView, 0, len(trends))
				for _, t := range trends {
					counts, err := st.CountTrendRows(cmd.Context(), t.TrendID)
					if err != nil {
						return fmt.Errorf("count rows for trend %d: %w", t.TrendID, err)
					}
					views = append(views, newTrendView(t, counts))
				}
				if asJSON {
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No trends recorded")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, v.row())
				}
				fmt.Fprintln(out, renderTable(trendColumns, rows))
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&documentID, "document", "d", 0, "Only show trends for this document ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
