package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dashboard, API and collaboration relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(true)
		if err != nil {
			return err
		}
		defer sess.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port > 0 {
			port = cfg.Server.Port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Printf("Collaborators can join with: aistudio collab --relay ws://localhost:%d/ws/collab\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, cfg, sess.ws, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}
