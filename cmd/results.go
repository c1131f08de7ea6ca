package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"careerquiz/report"

	"github.com/spf13/cobra"
)

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List every recorded quiz attempt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			attempts, err := a.db.Results().All(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tAPTITUDE\tINTEREST\tPERSONALITY\tTOTAL\tCAREER\tDATE")
			for _, r := range attempts {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					r.ID, r.Username, r.Aptitude, r.Interest, r.Personality, r.Total, r.Career,
					r.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show how many attempts landed in each career",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := report.Build(cmd.Context(), a.db.Results())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CAREER\tCOUNT\tSHARE")
			for _, c := range rep.Careers {
				fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", c.Career, c.Count, c.Percent)
			}
			fmt.Fprintf(tw, "Total\t%d\t\n", rep.Total)
			return tw.Flush()
		},
	}
}
