package main

import (
	"livequiz/config"
	"livequiz/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const releaseVersion = "0.1.0"

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:     "livequiz",
		Short:   "Live multiplayer quiz server and terminal client.",
		Version: releaseVersion,
	}

	fs := cmd.PersistentFlags()
	config.RegisterFlags(fs, cfg)

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		envErr := config.BindEnv(fs)
		config.SetupLogging(cfg)
		if envErr != nil {
			log.Warn().Err(envErr).Msg("could not load .env file")
		}
	}

	cmd.AddCommand(newServeCmd(cfg), newImportCmd(cfg), newPlayCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("livequiz v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Game{},
		&models.Player{},
		&models.GameAnswer{},
	)
}
