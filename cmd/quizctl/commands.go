package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

var errInputClosed = errors.New("input closed before the quiz finished")

type rootOptions struct {
	catalogPath string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quizctl",
		Short: "Inspect quiz catalogs and play quizzes in the terminal",
		Long: `quizctl loads a catalog directory of YAML, JSON and XLSX files,
the same way the quiz server does, and lets you check or play it locally.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	defaultPath := os.Getenv("QUIZ_CATALOG_PATH")
	if defaultPath == "" {
		defaultPath = "./catalog"
	}
	cmd.PersistentFlags().StringVarP(&opts.catalogPath, "catalog", "c", defaultPath, "catalog directory")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log loader details")

	cmd.AddCommand(
		newSubjectsCmd(opts),
		newValidateCmd(opts),
		newPlayCmd(opts),
	)
	return cmd
}

func newSubjectsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List subjects and their levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := curriculum.NewLoader(opts.catalogPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			subjects := loader.Catalog().Subjects()
			if len(subjects) == 0 {
				fmt.Fprintln(out, "No subjects found.")
				return nil
			}
			for _, s := range subjects {
				levels := make([]string, 0, len(s.Levels))
				for _, l := range s.Levels {
					levels = append(levels, fmt.Sprintf("%s (%d)", l.Name, len(l.Questions)))
				}
				fmt.Fprintf(out, "%s: %s\n", s.Name, strings.Join(levels, ", "))
			}
			return nil
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := curriculum.NewLoader(opts.catalogPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			levels, questions := 0, 0
			for _, s := range loader.Catalog().Subjects() {
				levels += len(s.Levels)
				for _, l := range s.Levels {
					questions += len(l.Questions)
				}
			}
			fmt.Fprintf(out, "%d subjects, %d levels, %d questions from %d files\n",
				loader.Catalog().Len(), levels, questions, len(loader.Files()))

			skipped := loader.Skipped()
			for _, path := range skipped {
				fmt.Fprintf(out, "skipped: %s\n", path)
			}
			if strict && len(skipped) > 0 {
				return fmt.Errorf("%d invalid catalog files", len(skipped))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if any catalog file was skipped")
	return cmd
}

func newPlayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play <subject> <level>",
		Short: "Play a quiz, answering by option number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := curriculum.NewLoader(opts.catalogPath)
			if err != nil {
				return err
			}
			return runPlay(cmd.InOrStdin(), cmd.OutOrStdout(), loader.Catalog(), args[0], args[1])
		},
	}
}

// runPlay drives one session from in, writing prompts and feedback to out.
func runPlay(in io.Reader, out io.Writer, catalog *quiz.Catalog, subject, level string) error {
	s := quiz.NewSession(catalog)
	if err := s.Start(subject, level); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s - %s (%d questions)\n", subject, level, s.TotalQuestions())
	sc := bufio.NewScanner(in)

	for s.Phase() == quiz.PhaseInProgress {
		q, err := s.CurrentQuestion()
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n[%d/%d] %s\n", s.QuestionIndex()+1, s.TotalQuestions(), q.Text)
		for i, o := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, o)
		}
		fmt.Fprint(out, "> ")

		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return err
			}
			return errInputClosed
		}

		n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil || n < 1 || n > len(q.Options) {
			fmt.Fprintf(out, "Enter a number from 1 to %d.\n", len(q.Options))
			continue
		}

		if err := s.SelectAnswer(q.Options[n-1]); err != nil {
			return err
		}
		outcome, err := s.Submit()
		if err != nil {
			return err
		}
		if outcome.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Wrong, the answer is %s.\n", outcome.CorrectAnswer)
		}
	}

	res, err := s.Result()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nScore: %d/%d (%d%%)\n", res.Score, res.Total, res.Percent())
	return nil
}
