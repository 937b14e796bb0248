package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toursRole string

var toursCmd = &cobra.Command{
	Use:   "tours",
	Short: "List the tours available to a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		defer svc.Shutdown()

		tours, err := svc.ListTours(toursRole)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOUR\tSTEPS\tCOMPLETED")
		for _, t := range tours {
			fmt.Fprintf(w, "%s\t%d\t%v\n", t.Type, t.Steps, t.Completed)
		}
		return w.Flush()
	},
}

var targetsDevtools string

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the browser pages that can host a tour",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		defer svc.Shutdown()

		targets, err := svc.ListTargets(targetsDevtools)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tURL")
		for _, t := range targets {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Title, t.URL)
		}
		return w.Flush()
	},
}

func init() {
	toursCmd.Flags().StringVar(&toursRole, "role", "member", "role used to filter tours")
	targetsCmd.Flags().StringVar(&targetsDevtools, "devtools", "", "DevTools HTTP endpoint (defaults to config)")
}
