// Note commands.
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

var (
	noteTitle    string
	noteContent  string
	noteTags     []string
	noteProjects []string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new note",
	Long: `Add creates a markdown note, optionally linked to projects.

Example:
  satchel note add --title "Design" --content "# Notes"
  satchel note add --title "Plan" --content "..." --projects <project-id>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		note := &types.Note{
			Title:      noteTitle,
			Content:    noteContent,
			Tags:       noteTags,
			ProjectIDs: noteProjects,
		}
		if err := store.CreateNote(note); err != nil {
			return err
		}

		if flagJSON {
			return printJSON(note)
		}
		fmt.Println("Created note:", note.ID)
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		notes, err := store.ListNotes()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(notes)
		}
		printNoteTable(notes)
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show one note with its links and subnote count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		note, err := store.GetNote(args[0])
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(note)
		}
		fmt.Println("#", note.Title)
		fmt.Println(note.Content)
		if note.SubnoteCount != nil && *note.SubnoteCount > 0 {
			fmt.Printf("(%d subnotes)\n", *note.SubnoteCount)
		}
		return nil
	},
}

func printNoteTable(notes []*types.Note) {
	if len(notes) == 0 {
		fmt.Println("No notes found.")
		return
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTAGS\tCREATED")
	for _, n := range notes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Title, strings.Join(n.Tags, ","), n.CreatedAt)
	}
	w.Flush()
	fmt.Print(sb.String())
}

func init() {
	noteAddCmd.Flags().StringVar(&noteTitle, "title", "", "note title (required)")
	noteAddCmd.Flags().StringVar(&noteContent, "content", "", "note content")
	noteAddCmd.Flags().StringSliceVar(&noteTags, "tags", nil, "comma-separated tags")
	noteAddCmd.Flags().StringSliceVar(&noteProjects, "projects", nil, "project IDs to link")
	_ = noteAddCmd.MarkFlagRequired("title")

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteShowCmd)
}
