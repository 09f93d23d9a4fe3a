package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/clips"
)

var clipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "Generate, regenerate and trim video clips",
}

var clipsRequestCmd = &cobra.Command{
	Use:   "request [prompt-id...]",
	Short: "Generate a new clip for each prompt (all prompts with --all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		ids := args
		if clipsRequestAll {
			ids = nil
			for _, e := range sess.ws.Prompts.Entries() {
				ids = append(ids, e.ID)
			}
		}
		if len(ids) == 0 {
			return fmt.Errorf("no prompts given (pass prompt ids or --all)")
		}

		var requested []string
		for _, id := range ids {
			c, ok := sess.ws.RequestClip(context.Background(), id)
			if !ok {
				fmt.Printf("  %s: prompt not found\n", id)
				continue
			}
			requested = append(requested, c.ID)
		}
		if len(requested) == 0 {
			return nil
		}

		fmt.Printf("Generating %d clips...\n", len(requested))
		sess.ws.Clips.Wait()
		printClips(sess.ws.Clips, requested)
		return nil
	},
}

var clipsRequestAll bool

var clipsRegenerateCmd = &cobra.Command{
	Use:   "regenerate [clip-id]",
	Short: "Regenerate a clip from its original prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		if !sess.ws.Regenerate(context.Background(), args[0]) {
			return fmt.Errorf("clip %s not found", args[0])
		}
		fmt.Println("Regenerating...")
		sess.ws.Clips.Wait()
		printClips(sess.ws.Clips, args)
		return nil
	},
}

var clipsTrimCmd = &cobra.Command{
	Use:   "trim [clip-id] [start] [end]",
	Short: "Set a clip's trim range in seconds",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid start: %s", args[1])
		}
		end, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid end: %s", args[2])
		}

		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		if !sess.ws.SetTrim(args[0], start, end) {
			return fmt.Errorf("clip %s not found", args[0])
		}
		c, _ := sess.ws.Clips.Get(args[0])
		fmt.Printf("Trim set to %ds - %ds of %ds\n", c.TrimStart, c.TrimEnd, c.Duration)
		return nil
	},
}

var clipsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		all := sess.ws.Clips.Clips()
		if len(all) == 0 {
			fmt.Println("No clips yet. Generate some with: aistudio clips request --all")
			return nil
		}
		ids := make([]string, len(all))
		for i, c := range all {
			ids[i] = c.ID
		}
		printClips(sess.ws.Clips, ids)
		return nil
	},
}

func init() {
	clipsRequestCmd.Flags().BoolVar(&clipsRequestAll, "all", false, "Request a clip for every prompt")

	clipsCmd.AddCommand(clipsRequestCmd)
	clipsCmd.AddCommand(clipsRegenerateCmd)
	clipsCmd.AddCommand(clipsTrimCmd)
	clipsCmd.AddCommand(clipsListCmd)
}

func printClips(reg *clips.Registry, ids []string) {
	colorize := shouldColorize(os.Stdout)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		c, ok := reg.Get(id)
		if !ok {
			continue
		}
		detail := c.VideoURL
		if c.Status == clips.StatusError {
			detail = c.LastError
		}
		rows = append(rows, []string{
			c.ID,
			paint(string(c.Status), clipColor(c.Status), colorize),
			truncate(c.ScriptLine, 36),
			fmt.Sprintf("%ds", c.Duration),
			fmt.Sprintf("%d-%d", c.TrimStart, c.TrimEnd),
			truncate(detail, 60),
		})
	}
	fmt.Println(renderTable(
		[]string{"Clip", "Status", "Script line", "Duration", "Trim", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func clipColor(s clips.Status) string {
	switch s {
	case clips.StatusReady:
		return ansiGreen
	case clips.StatusError:
		return ansiRed
	default:
		return ansiYellow
	}
}
