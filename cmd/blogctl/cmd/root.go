// Package cmd implements the blogctl CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jmporch/musings/internal/config"
	"github.com/jmporch/musings/internal/db"
	"github.com/jmporch/musings/internal/repository"
)

var (
	// Global flags
	cfgPath string
	blogID  string

	// Loaded server configuration, available to all commands.
	cfg *config.Config
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "Administer a musings blog instance",
	Long: `blogctl is the offline administration and local debugging tool for a
musings blog: create or reset a blog database, manage posts without going
through the HTTP API, and manage the server's credential list.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if blogID != "" {
			cfg.Blog.ID = blogID
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to the server configuration file")
	rootCmd.PersistentFlags().StringVar(&blogID, "blog", "", "Blog id override (selects <data_dir>/<id>.db)")
}

// openRepo opens the blog database and initializes the post repository.
// The caller must Close the returned database.
func openRepo() (*db.SQLite, repository.PostRepository, error) {
	quiet := zerolog.Nop()
	db.SetLogger(quiet)
	repository.SetLogger(quiet)

	database := db.NewSQLite(cfg.DBPath())
	if err := database.InitDb(); err != nil {
		return nil, nil, fmt.Errorf(config.ErrOpenDatabaseFmt, err)
	}

	repo := repository.NewDbPostRepository(database)
	if err := repo.Init(); err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, repo, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
