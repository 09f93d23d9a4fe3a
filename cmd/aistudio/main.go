package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIStudio/internal/config"
	"github.com/TobiSchelling/AIStudio/internal/database"
	"github.com/TobiSchelling/AIStudio/internal/workspace"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aistudio",
	Short:   "Short video production workspace",
	Long:    "AIStudio takes news ideas through a versioned script and visual prompts to generated video clips.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadEnv(); err != nil {
			return err
		}
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			if configPath != "" {
				return err
			}
			log.Println("No config file found, using built-in defaults (run 'aistudio init' to create one)")
			cfg = config.Default()
			return nil
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if strings.EqualFold(cfg.Logging.Level, "DEBUG") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(clipsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(collabCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("aistudio", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/aistudio/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure idea sources, the LLM provider and the video generator.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace progress and database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openWorkspace(false)
		if err != nil {
			return err
		}
		defer sess.Close()

		stats, err := sess.db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		colorize := shouldColorize(os.Stdout)
		fmt.Println(renderProgress(sess.ws.Progress(), colorize))
		fmt.Println()
		fmt.Println(renderTable(
			[]string{"Item", "Count"},
			[][]string{
				{"Ideas", fmt.Sprint(stats.Ideas)},
				{"Approved ideas", fmt.Sprint(stats.ApprovedIdeas)},
				{"Script revisions", fmt.Sprint(stats.Versions)},
				{"Prompts", fmt.Sprint(stats.Prompts)},
				{"Clips", fmt.Sprint(stats.Clips)},
				{"Ready clips", fmt.Sprint(stats.ReadyClips)},
			},
			[]columnAlignment{alignLeft, alignRight},
		))
		fmt.Printf("\nModel: %s\n", sess.ws.ModelName())
		fmt.Printf("Database: %s\n", sess.db.Path())
		return nil
	},
}

// session is an open workspace plus the resources backing it.
type session struct {
	db   *database.DB
	ws   *workspace.Workspace
	lock *flock.Flock
}

// openWorkspace opens the database and loads the workspace. Commands that
// change state pass write=true and hold the data dir lock until Close.
func openWorkspace(write bool) (*session, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	sess := &session{}
	if write {
		sess.lock = flock.New(filepath.Join(dataDir, "aistudio.lock"))
		ok, err := sess.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, errors.New("workspace is in use by another aistudio process (is 'aistudio serve' running?)")
		}
	}

	db, err := database.Open(cfg.DBPath())
	if err != nil {
		sess.unlock()
		return nil, err
	}
	sess.db = db

	sess.ws = workspace.FromConfig(cfg, db)
	if err := sess.ws.Load(); err != nil {
		db.Close()
		sess.unlock()
		return nil, err
	}
	return sess, nil
}

// Close waits for in-flight clip generations, then releases everything.
func (s *session) Close() {
	s.ws.Close()
	if err := s.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	s.unlock()
}

func (s *session) unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		log.Printf("Failed to release workspace lock: %v", err)
	}
}
