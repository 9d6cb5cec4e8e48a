// Project commands.
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

var (
	projectTitle       string
	projectDescription string
	projectTags        []string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new project",
	Long: `Add creates a new project with the given title.

Example:
  satchel project add --title "Side project"
  satchel project add --title "Work" --tags work,planning --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		project := &types.Project{Title: projectTitle, Tags: projectTags}
		if projectDescription != "" {
			project.Description = &projectDescription
		}
		if err := store.CreateProject(project); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(project)
		}
		fmt.Println("Created project:", project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		projects, err := store.ListProjects()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(projects)
		}
		printProjectTable(projects)
		return nil
	},
}

func printProjectTable(projects []*types.Project) {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTAGS\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, strings.Join(p.Tags, ","), p.CreatedAt)
	}
	w.Flush()
	fmt.Print(sb.String())
}

func init() {
	projectAddCmd.Flags().StringVar(&projectTitle, "title", "", "project title (required)")
	projectAddCmd.Flags().StringVar(&projectDescription, "description", "", "project description")
	projectAddCmd.Flags().StringSliceVar(&projectTags, "tags", nil, "comma-separated tags")
	_ = projectAddCmd.MarkFlagRequired("title")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
}
