// Task and task list commands.
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

var (
	taskListProject string
	taskListTitle   string
	taskTitle       string
	taskListID      string
	taskStatus      string
	taskFilterList  string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks and task lists",
}

var taskListAddCmd = &cobra.Command{
	Use:   "list-add",
	Short: "Create a new task list in a project",
	Long: `List-add creates a task list under the given project.

Example:
  satchel task list-add --project <project-id> --title "Backlog"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		list := &types.TaskList{Title: taskListTitle, ProjectID: taskListProject}
		if err := store.CreateTaskList(list); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(list)
		}
		fmt.Println("Created task list:", list.ID)
		return nil
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new task in a list",
	Long: `Add creates a task in the given list with status backlog.

Example:
  satchel task add --list <list-id> --title "Write importer"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		task := &types.Task{Title: taskTitle, ListID: taskListID}
		if err := store.CreateTask(task); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(task)
		}
		fmt.Println("Created task:", task.ID)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List shows all tasks, or the tasks of one list with --list.

Example:
  satchel task list
  satchel task list --list <list-id> --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var tasks []*types.Task
		if taskFilterList != "" {
			tasks, err = store.ListTasksByList(taskFilterList)
		} else {
			tasks, err = store.ListTasks()
		}
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(tasks)
		}
		printTaskTable(tasks)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Set a task's status",
	Long: `Status transitions a task. Moving into in_progress stamps started_at,
done and cancelled stamp completed_at.

Example:
  satchel task status <task-id> --status in_progress`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SetTaskStatus(args[0], taskStatus); err != nil {
			return err
		}

		task, err := store.GetTask(args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(task)
		}
		fmt.Printf("Task %s is now %s\n", task.ID, task.Status)
		return nil
	},
}

func printTaskTable(tasks []*types.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tLIST\tCREATED")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.ListID, t.CreatedAt)
	}
	w.Flush()
	fmt.Print(sb.String())
}

func init() {
	taskListAddCmd.Flags().StringVar(&taskListProject, "project", "", "owning project ID (required)")
	taskListAddCmd.Flags().StringVar(&taskListTitle, "title", "", "task list title (required)")
	_ = taskListAddCmd.MarkFlagRequired("project")
	_ = taskListAddCmd.MarkFlagRequired("title")

	taskAddCmd.Flags().StringVar(&taskListID, "list", "", "owning task list ID (required)")
	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	_ = taskAddCmd.MarkFlagRequired("list")
	_ = taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskFilterList, "list", "", "filter by task list ID")

	taskStatusCmd.Flags().StringVar(&taskStatus, "status", "", "new status (backlog, todo, in_progress, review, done, cancelled)")
	_ = taskStatusCmd.MarkFlagRequired("status")

	taskCmd.AddCommand(taskListAddCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskStatusCmd)
}
