package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/script"
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Draft, commit and restore script revisions",
}

var scriptGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft a script from the approved ideas (replaces the draft)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		text, err := sess.ws.GenerateScript(context.Background())
		if err != nil {
			return fmt.Errorf("generating script: %w", err)
		}
		fmt.Printf("Drafted %d lines with %s:\n\n%s\n", len(strings.Split(text, "\n")), sess.ws.ModelName(), text)
		return nil
	},
}

var scriptEditCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Replace the draft with the contents of file (or stdin)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading draft: %w", err)
		}

		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.ws.EditDraft(strings.TrimRight(string(data), "\n"))
		fmt.Printf("Draft updated (%d characters)\n", len(sess.ws.Script.Draft()))
		return nil
	},
}

var scriptShowCmd = &cobra.Command{
	Use:   "show [version-id]",
	Short: "Print the draft, or a committed revision",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		if len(args) == 0 {
			draft := sess.ws.Script.Draft()
			if strings.TrimSpace(draft) == "" {
				fmt.Println("Draft is empty. Generate one with: aistudio script generate")
				return nil
			}
			fmt.Println(draft)
			return nil
		}
		for _, v := range sess.ws.Script.State().Versions {
			if v.ID == args[0] {
				fmt.Printf("%s by %s, %s\n\n%s\n", v.Title, v.Author, v.CreatedAt.Local().Format("2006-01-02 15:04"), v.Content)
				return nil
			}
		}
		return fmt.Errorf("version %s not found", args[0])
	},
}

var scriptCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Save the draft as a new revision",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		v, err := sess.ws.Commit()
		if errors.Is(err, script.ErrEmptyCommit) {
			fmt.Println("Draft is empty, nothing to commit.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Committed %s [%s]\n", v.Title, v.ID)
		return nil
	},
}

var scriptRestoreCmd = &cobra.Command{
	Use:   "restore [version-id]",
	Short: "Make a revision active and load it into the draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		if !sess.ws.Restore(args[0]) {
			return fmt.Errorf("version %s not found", args[0])
		}
		v, _ := sess.ws.Script.Active()
		fmt.Printf("Restored %s\n", v.Title)
		return nil
	},
}

var scriptHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List committed revisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		state := sess.ws.Script.State()
		if len(state.Versions) == 0 {
			fmt.Println("No revisions yet. Commit the draft with: aistudio script commit")
			return nil
		}

		rows := make([][]string, 0, len(state.Versions))
		for i := len(state.Versions) - 1; i >= 0; i-- {
			v := state.Versions[i]
			active := ""
			if v.ID == state.ActiveVersionID {
				active = "*"
			}
			rows = append(rows, []string{
				active,
				v.Title,
				v.ID,
				v.Author,
				v.CreatedAt.Local().Format("2006-01-02 15:04"),
				truncate(v.Content, 40),
			})
		}
		fmt.Println(renderTable([]string{"", "Revision", "ID", "Author", "Created", "Preview"}, rows, nil))
		return nil
	},
}

func init() {
	scriptCmd.AddCommand(scriptGenerateCmd)
	scriptCmd.AddCommand(scriptEditCmd)
	scriptCmd.AddCommand(scriptShowCmd)
	scriptCmd.AddCommand(scriptCommitCmd)
	scriptCmd.AddCommand(scriptRestoreCmd)
	scriptCmd.AddCommand(scriptHistoryCmd)
}
