// Skill commands, including on-disk attachment extraction.
package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/internal/skillcache"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage skills and their attachments",
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		skills, err := store.ListSkills()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(skills)
		}
		printSkillTable(skills)
		return nil
	},
}

var skillExtractCmd = &cobra.Command{
	Use:   "extract <skill-id>",
	Short: "Materialize a skill's attachments into the cache directory",
	Long: `Extract writes a skill's attachments under the data directory so
scripts can be executed and references read directly.

Example:
  satchel skill extract <skill-id>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		skill, err := store.GetSkill(args[0])
		if err != nil {
			return err
		}

		dir, err := skillcache.Extract(store.DataDir(), skill.ID, skill.Attachments)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(map[string]any{"dir": dir, "attachments": len(skill.Attachments)})
		}
		fmt.Printf("Extracted %d attachments to %s\n", len(skill.Attachments), dir)
		return nil
	},
}

var skillCacheClearCmd = &cobra.Command{
	Use:   "cache-clear",
	Short: "Remove all extracted skill attachments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := skillcache.ClearAll(store.DataDir()); err != nil {
			return err
		}
		fmt.Println("Skill cache cleared")
		return nil
	},
}

func printSkillTable(skills []*types.Skill) {
	if len(skills) == 0 {
		fmt.Println("No skills found.")
		return
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS\tCREATED")
	for _, s := range skills {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, strings.Join(s.Tags, ","), s.CreatedAt)
	}
	w.Flush()
	fmt.Print(sb.String())
}

func init() {
	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillExtractCmd)
	skillCmd.AddCommand(skillCacheClearCmd)
}
