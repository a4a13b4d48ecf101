package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tenderscope/tenderscope/internal/catalog"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the investigation task catalog",
	RunE:  runTasks,
}

func runTasks(*cobra.Command, []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tSEVERITY\tNAME")
	for _, t := range catalog.All() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Code, t.Severity, t.Name)
	}
	return w.Flush()
}
