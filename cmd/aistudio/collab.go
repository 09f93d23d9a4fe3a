package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/collab"
	"github.com/TobiSchelling/AIStudio/internal/database"
	"github.com/TobiSchelling/AIStudio/internal/workspace"
)

var (
	collabWorkspace string
	collabRelay     string
	collabName      string
)

var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Co-edit the script draft with other instances through the relay",
	Long: `Join the collaboration relay hosted by 'aistudio serve' and edit the draft together.

Typed lines are appended to the draft and shared. Commands:
  /show          print the draft
  /who           list active collaborators
  /clear         empty the draft
  /quit          leave

Incoming edits replace the local draft (the last one received wins). This
session does not write to the database; the serving instance persists edits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if collabWorkspace == "" {
			collabWorkspace = cfg.Collaboration.Workspace
		}
		if collabRelay == "" {
			collabRelay = cfg.Collaboration.RelayURL
		}
		if collabName == "" {
			collabName = cfg.AuthorName()
		}

		snap, err := loadSnapshot()
		if err != nil {
			return err
		}
		ws := workspace.FromConfig(cfg, nil)
		ws.Apply(snap)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		bus, err := collab.DialBus(dialCtx, collabRelay, collabWorkspace)
		cancel()
		if err != nil {
			return fmt.Errorf("%w (is 'aistudio serve' running?)", err)
		}
		defer bus.Close()

		colorize := shouldColorize(os.Stdout)
		var names sync.Map
		opts := collab.Options{
			HeartbeatInterval: cfg.Collaboration.Heartbeat(),
			StaleAfter:        cfg.Collaboration.StaleAfter(),
			OnUpdate: func(senderID, content string) {
				name := "A collaborator"
				if v, ok := names.Load(senderID); ok {
					name = v.(string)
				}
				fmt.Printf("\n%s updated the draft (%d lines)\n> ", name, countLines(content))
			},
			OnRosterChange: func(active []collab.Presence) {
				for _, p := range active {
					names.Store(p.ID, p.Name)
				}
				fmt.Printf("\nCollaborators: %s\n> ", rosterLine(active, colorize))
			},
		}
		ch, err := ws.Attach(ctx, bus, collab.NewSession(collabName), opts)
		if err != nil {
			return err
		}
		defer ws.Close()

		self := ch.Self()
		fmt.Printf("Joined workspace %q as %s. Type /quit to leave.\n> ", collabWorkspace, paint(self.Name, ansiBlue, colorize))

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				fmt.Println()
				return nil
			case <-bus.Done():
				fmt.Println("\nRelay connection closed.")
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if quit := handleCollabInput(ws, ch, line, colorize); quit {
					return nil
				}
				fmt.Print("> ")
			}
		}
	},
}

func init() {
	collabCmd.Flags().StringVarP(&collabWorkspace, "workspace", "w", "", "Workspace to join (default from config)")
	collabCmd.Flags().StringVar(&collabRelay, "relay", "", "Relay websocket URL (default from config)")
	collabCmd.Flags().StringVarP(&collabName, "name", "n", "", "Display name (default: configured author)")
}

func handleCollabInput(ws *workspace.Workspace, ch *collab.Channel, line string, colorize bool) bool {
	switch strings.TrimSpace(line) {
	case "/quit", "/exit":
		return true
	case "/show":
		fmt.Println(ws.Script.Draft())
	case "/who":
		fmt.Println(rosterLine(ch.ActiveCollaborators(), colorize))
	case "/clear":
		ws.EditDraft("")
	default:
		draft := ws.Script.Draft()
		if draft != "" {
			draft += "\n"
		}
		ws.EditDraft(draft + line)
	}
	return false
}

// loadSnapshot reads the saved workspace without taking the write lock.
func loadSnapshot() (database.Snapshot, error) {
	db, err := database.Open(cfg.DBPath())
	if err != nil {
		return database.Snapshot{}, err
	}
	defer db.Close()
	return db.LoadSnapshot()
}

func rosterLine(active []collab.Presence, colorize bool) string {
	names := make([]string, 0, len(active))
	for i, p := range active {
		name := p.Name
		if i == 0 {
			name += " (you)"
		}
		names = append(names, paint(name, ansiBlue, colorize && i == 0))
	}
	return strings.Join(names, ", ")
}

func countLines(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}
