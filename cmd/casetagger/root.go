package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/casetagger/internal/app"
	"github.com/heartmarshall/casetagger/internal/config"
	"github.com/heartmarshall/casetagger/internal/corpus"
	"github.com/heartmarshall/casetagger/internal/domain"
)

type rootFlags struct {
	configPath string
	debug      bool
	language   string
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:           "casetagger",
		Short:         "Case-based POS and gloss tagger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config YAML (default $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().BoolVarP(&f.debug, "debug", "v", false, "log at debug level")

	root.AddCommand(
		newTrainCmd(&f),
		newTagCmd(&f),
		newTestCmd(&f),
		newResetCmd(&f),
		newVersionCmd(),
	)
	return root
}

// session is the per-invocation wiring shared by the commands.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	app    *app.App
	runner *app.Runner
}

func openSession(ctx context.Context, f *rootFlags) (*session, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.debug {
		cfg.Log.Level = "debug"
	}
	logger := app.NewLogger(cfg.Log)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		log:    logger,
		app:    a,
		runner: app.NewRunner(logger, a, cfg.Run.Parallelism),
	}, nil
}

func (s *session) Close() { s.app.Close() }

// readTexts parses every file, reporting bad files and keeping the texts of
// the good ones. With a language override every text is reassigned.
func (s *session) readTexts(paths []string, language string) ([]*domain.Text, error) {
	texts, err := corpus.ReadFiles(paths...)
	if err != nil {
		s.log.Error("some input files could not be read", slog.String("error", err.Error()))
	}
	if len(texts) == 0 {
		return nil, errors.Join(errors.New("no texts to process"), err)
	}
	if language != "" {
		for _, t := range texts {
			t.Language = language
		}
	}
	return texts, err
}

func newTrainCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train FILES...",
		Short: "Train the case stores from annotated texts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := s.app.Context(cmd.Context())

			texts, readErr := s.readTexts(args, f.language)
			if texts == nil {
				return readErr
			}

			results, err := s.runner.Train(ctx, texts)
			for _, r := range results {
				if r.Err != nil {
					continue
				}
				s.log.InfoContext(ctx, "training completed",
					slog.String("language", r.Language),
					slog.Int("texts", r.Texts),
					slog.Int("phrases", r.Train.Phrases),
					slog.Int("words", r.Train.Words),
					slog.Int("morphemes", r.Train.Morphemes),
					slog.Int("cases", r.Train.Cases),
					slog.Duration("duration", r.Duration),
				)
			}
			return errors.Join(readErr, err)
		},
	}
	cmd.Flags().StringVar(&f.language, "language", "", "override the language of every text")
	return cmd
}

func newTagCmd(f *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tag FILES...",
		Short: "Tag texts and write them as YAML",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := s.app.Context(cmd.Context())

			texts, readErr := s.readTexts(args, f.language)
			if texts == nil {
				return readErr
			}
			for _, t := range texts {
				t.StripAnnotations()
			}

			_, err = s.runner.Tag(ctx, texts)

			if out == "" {
				return errors.Join(readErr, err, corpus.Write(cmd.OutOrStdout(), texts))
			}
			return errors.Join(readErr, err, writeTexts(out, texts))
		},
	}
	cmd.Flags().StringVar(&f.language, "language", "", "override the language of every text")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write tagged texts to this file instead of stdout")
	return cmd
}

// writeTexts writes texts to path. A failed close is reported since it can
// lose buffered output.
func writeTexts(path string, texts []*domain.Text) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return corpus.Write(file, texts)
}

func newTestCmd(f *rootFlags) *cobra.Command {
	var detail bool
	cmd := &cobra.Command{
		Use:   "test FILES...",
		Short: "Tag annotated texts and report accuracy against their annotation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := s.app.Context(cmd.Context())

			texts, readErr := s.readTexts(args, f.language)
			if texts == nil {
				return readErr
			}

			detail = detail || s.cfg.Tagger.PrintTestErrorDetail
			results, err := s.runner.Test(ctx, texts)
			for _, r := range results {
				if r.Eval == nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n%s\n", r.Language, r.Eval)
				if detail {
					fmt.Fprint(cmd.OutOrStdout(), r.Eval.Detail())
				}
			}
			return errors.Join(readErr, err)
		},
	}
	cmd.Flags().StringVar(&f.language, "language", "", "override the language of every text")
	cmd.Flags().BoolVar(&detail, "detail", false, "list every wrongly tagged word and morpheme")
	return cmd
}

func newResetCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Destroy the case store of one language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.language == "" {
				return errors.New("--language is required")
			}
			s, err := openSession(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.runner.Reset(s.app.Context(cmd.Context()), f.language)
		},
	}
	cmd.Flags().StringVar(&f.language, "language", "", "language whose store is destroyed")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion())
		},
	}
}
