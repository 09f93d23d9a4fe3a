package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/ideas"
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Fetch and review story ideas",
}

var ideasRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace the idea board with fresh ideas from the configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		fmt.Println("Fetching ideas...")
		if err := sess.ws.RefreshIdeas(context.Background()); err != nil {
			fmt.Printf("Idea source unavailable, kept %d existing ideas.\n  %v\n", len(sess.ws.Ideas.Ideas()), err)
			return nil
		}

		if src := sess.ws.IdeaSource(); src != "" {
			fmt.Printf("Loaded %d ideas from %s.\n", len(sess.ws.Ideas.Ideas()), src)
		}
		printIdeas(sess.ws.Ideas.Ideas())
		return nil
	},
}

var ideasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ideas and their review state",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		items := sess.ws.Ideas.Ideas()
		if len(items) == 0 {
			fmt.Println("No ideas yet. Fetch some with: aistudio ideas refresh")
			return nil
		}
		printIdeas(items)
		return nil
	},
}

func approvalCmd(use, short string, value ideas.Approval) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openWorkspace(true)
			if err != nil {
				return err
			}
			defer sess.Close()

			for _, id := range args {
				idea, ok := sess.ws.Ideas.Get(id)
				if !ok || !sess.ws.SetApproval(id, value) {
					fmt.Printf("  %s: not found\n", id)
					continue
				}
				fmt.Printf("  %s: %s (%s)\n", id, value, idea.Title)
			}
			stats := sess.ws.Ideas.Stats()
			fmt.Printf("\n%d approved, %d rejected, %d pending\n", stats.Approved, stats.Rejected, stats.Pending)
			return nil
		},
	}
}

func init() {
	ideasCmd.AddCommand(ideasRefreshCmd)
	ideasCmd.AddCommand(ideasListCmd)
	ideasCmd.AddCommand(approvalCmd("approve", "Approve ideas for the script", ideas.Approved))
	ideasCmd.AddCommand(approvalCmd("reject", "Reject ideas", ideas.Rejected))
	ideasCmd.AddCommand(approvalCmd("reset", "Clear the review decision on ideas", ideas.Undecided))
}

func printIdeas(items []ideas.Idea) {
	colorize := shouldColorize(os.Stdout)
	rows := make([][]string, 0, len(items))
	approved, rejected, pending := 0, 0, 0
	for _, idea := range items {
		mark := " "
		switch idea.Approved {
		case ideas.Approved:
			mark = paint("✓", ansiGreen, colorize)
			approved++
		case ideas.Rejected:
			mark = paint("✗", ansiRed, colorize)
			rejected++
		default:
			pending++
		}
		rows = append(rows, []string{
			mark,
			idea.ID,
			truncate(idea.Title, 60),
			paint(string(idea.Sentiment), sentimentColor(idea.Sentiment), colorize),
			string(idea.Interest),
		})
	}
	fmt.Println(renderTable([]string{"", "ID", "Title", "Sentiment", "Interest"}, rows, nil))
	fmt.Printf("%d approved, %d rejected, %d pending\n", approved, rejected, pending)
}

func sentimentColor(s ideas.Sentiment) string {
	switch s {
	case ideas.SentimentPositive:
		return ansiGreen
	case ideas.SentimentNegative:
		return ansiRed
	default:
		return ""
	}
}
