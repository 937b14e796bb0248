package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"cdptour/pkg/model"

	"github.com/spf13/cobra"
)

var (
	historyTour  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded tour runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		defer svc.Shutdown()

		runs, err := svc.History(model.TourType(historyTour), historyLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENDED\tTOUR\tROLE\tOUTCOME\tSTEP")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
				r.EndedAt.Local().Format(time.DateTime), r.Tour, r.Role, r.Outcome, r.LastStep+1, r.TotalSteps)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyTour, "tour", "", "only show runs of this tour")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs")
}
