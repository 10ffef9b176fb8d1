package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/screens"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with their client",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks grouped by client and project",
	Args:  cobra.NoArgs,
	RunE:  runTasks,
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List clients",
	Args:  cobra.NoArgs,
	RunE:  runClients,
}

func loadRef(cmd *cobra.Command) *screens.RefData {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	ref, err := screens.LoadRefData(ctx, a.client())
	if err != nil {
		exitErr(2, err)
	}
	return ref
}

func runProjects(cmd *cobra.Command, args []string) error {
	ref := loadRef(cmd)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tCLIENT")
	for _, p := range ref.Projects {
		client := ""
		if p.ClientID != nil {
			if c, ok := ref.Client(*p.ClientID); ok {
				client = c.Name
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Name, client)
	}
	return tw.Flush()
}

func runTasks(cmd *cobra.Command, args []string) error {
	ref := loadRef(cmd)
	groups := ref.TaskGroups()
	if len(groups) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}
	for _, g := range groups {
		dayStyle.Println(g.Name)
		for _, t := range g.Tasks {
			fmt.Printf("  %s %s\n", faintStyle.Sprintf("#%-8d", t.ID), t.Name)
		}
	}
	return nil
}

func runClients(cmd *cobra.Command, args []string) error {
	ref := loadRef(cmd)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT")
	for _, c := range ref.Clients {
		fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}
