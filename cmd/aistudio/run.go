package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/pipeline"
)

var (
	dryRun       bool
	refreshIdeas bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ideas -> script -> commit -> prompts -> clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(!dryRun)
		if err != nil {
			return err
		}
		defer sess.Close()

		pipe := pipeline.New(sess.ws)
		pipe.Refresh = refreshIdeas

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(context.Background())
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println()
			fmt.Println(renderProgress(sess.ws.Progress(), shouldColorize(cmd.OutOrStdout())))
			if !result.Failed() {
				fmt.Println("\nPipeline complete! Run 'aistudio serve' to review clips.")
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().BoolVar(&refreshIdeas, "refresh", false, "Re-fetch ideas even when some are loaded (drops review decisions)")
}
