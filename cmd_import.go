package main

import (
	"errors"
	"path/filepath"

	"livequiz/config"
	"livequiz/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newImportCmd(cfg *config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Validate YAML quiz files and store them in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]*services.QuizFile, 0, len(args))
			for _, path := range args {
				file, err := services.LoadQuizFile(path)
				if err != nil {
					return err
				}
				log.Info().Str("file", path).Str("title", file.Title).Int("questions", len(file.Questions)).Msg("quiz file is valid")
				files = append(files, file)
			}
			if dryRun {
				return nil
			}

			if !cfg.DatabaseEnabled() {
				return errors.New("import needs a database, set --db-host or LIVEQUIZ_DB_HOST")
			}
			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}
			if err := migrate(db); err != nil {
				return err
			}

			quizzes := services.NewQuizService(db)
			for i, file := range files {
				quiz, err := quizzes.ImportQuizFile(cmd.Context(), file, filepath.Base(args[i]))
				if err != nil {
					return err
				}
				log.Info().Uint("quiz_id", quiz.ID).Str("title", quiz.Title).Msg("quiz imported")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only validate the files")
	return cmd
}
