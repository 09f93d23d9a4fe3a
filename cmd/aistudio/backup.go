package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/database"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the workspace as JSON to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		data, err := json.MarshalIndent(sess.ws.Snapshot(), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding workspace: %w", err)
		}
		if len(args) == 0 || args[0] == "-" {
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("Exported workspace to %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the workspace with a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading import: %w", err)
		}

		var snap database.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decoding import: %w", err)
		}

		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.ws.Apply(snap)
		if err := sess.ws.Save(); err != nil {
			return err
		}
		fmt.Printf("Imported %d ideas, %d revisions, %d prompts, %d clips\n",
			len(snap.Ideas), len(snap.ScriptState.Versions), len(snap.Prompts), len(snap.Clips))
		return nil
	},
}
