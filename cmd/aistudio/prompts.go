package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/clips"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Derive and edit per-line visual prompts",
}

var promptsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Derive prompts from the script (discards prompt edits)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.ws.GeneratePrompts(context.Background()); err != nil {
			return fmt.Errorf("generating prompts: %w", err)
		}
		printPrompts(sess)
		return nil
	},
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts with their clip counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		if sess.ws.Prompts.Len() == 0 {
			fmt.Println("No prompts yet. Derive them with: aistudio prompts generate")
			return nil
		}
		printPrompts(sess)
		return nil
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set [prompt-id] [text]",
	Short: "Edit one prompt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		if !sess.ws.UpdatePrompt(args[0], args[1]) {
			return fmt.Errorf("prompt %s not found", args[0])
		}
		fmt.Println("Prompt updated.")
		return nil
	},
}

var promptsBulkPrint bool

var promptsBulkCmd = &cobra.Command{
	Use:   "bulk [file]",
	Short: "Overwrite prompts in order, one per line, from file (or stdin)",
	Long: "Overwrite prompts in order from file (or stdin). Blank lines are skipped, line N replaces\n" +
		"prompt N, and extra lines are ignored. Use --print to get the current prompts in this format.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if promptsBulkPrint {
			sess, err := openWorkspace(false)
			if err != nil {
				return err
			}
			defer sess.Close()
			fmt.Println(sess.ws.Prompts.BulkText())
			return nil
		}

		var data []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading prompts: %w", err)
		}

		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		n := sess.ws.BulkApply(string(data))
		fmt.Printf("Applied %d of %d prompts.\n", n, sess.ws.Prompts.Len())
		return nil
	},
}

func init() {
	promptsBulkCmd.Flags().BoolVar(&promptsBulkPrint, "print", false, "Print current prompts one per line instead")

	promptsCmd.AddCommand(promptsGenerateCmd)
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsSetCmd)
	promptsCmd.AddCommand(promptsBulkCmd)
}

func printPrompts(sess *session) {
	entries := sess.ws.Prompts.Entries()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		ready := 0
		clipsForPrompt := sess.ws.Clips.ForPrompt(e.ID)
		for _, c := range clipsForPrompt {
			if c.Status == clips.StatusReady {
				ready++
			}
		}
		edited := ""
		if e.EditablePrompt != e.GeneratedPrompt {
			edited = "edited"
		}
		rows = append(rows, []string{
			fmt.Sprint(e.LineIndex + 1),
			e.ID,
			truncate(e.Line, 40),
			truncate(e.EditablePrompt, 60),
			edited,
			fmt.Sprintf("%d/%d", ready, len(clipsForPrompt)),
		})
	}
	fmt.Println(renderTable(
		[]string{"Line", "ID", "Script line", "Prompt", "", "Clips ready"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}
