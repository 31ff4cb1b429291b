package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-adaptive/internal/adaptive"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Simulate a learner working through the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("learner")
			rounds, _ := cmd.Flags().GetInt("rounds")
			accuracy, _ := cmd.Flags().GetFloat64("accuracy")
			seed, _ := cmd.Flags().GetUint64("seed")
			wrong, _ := cmd.Flags().GetInt("wrong")

			if accuracy < 0 || accuracy > 1 {
				return fmt.Errorf("--accuracy must be between 0 and 1, got %v", accuracy)
			}
			return runDemo(cmd, cat, demoOptions{
				learnerID: id,
				rounds:    rounds,
				accuracy:  accuracy,
				wrong:     wrong,
				rng:       rand.New(rand.NewPCG(seed, seed)),
			})
		},
	}
	cmd.Flags().String("learner", "demo", "Learner ID")
	cmd.Flags().Int("rounds", 20, "Number of answers to submit")
	cmd.Flags().Float64("accuracy", 0.85, "Probability that the simulated learner answers correctly")
	cmd.Flags().Uint64("seed", 1, "Random seed")
	cmd.Flags().Int("wrong", 3, "Wrong answers to submit after the summary before asking for a new recommendation")
	return cmd
}

type demoOptions struct {
	learnerID string
	rounds    int
	accuracy  float64
	wrong     int
	rng       *rand.Rand
}

func runDemo(cmd *cobra.Command, cat *curriculum.Catalog, opts demoOptions) error {
	out := cmd.OutOrStdout()

	engine, err := adaptive.NewEngine(adaptive.EngineConfig{Catalog: cat})
	if err != nil {
		return err
	}
	if _, err := engine.Register(opts.learnerID, learner.Profile{Name: opts.learnerID}); err != nil {
		return err
	}

	for round := 1; round <= opts.rounds; round++ {
		rec, err := engine.Recommend(opts.learnerID)
		if err != nil {
			return err
		}
		if !rec.Available {
			fmt.Fprintf(out, "round %d: %s\n", round, rec.Message)
			break
		}

		qi := opts.rng.IntN(len(rec.Content.Questions))
		q := rec.Content.Questions[qi]
		choice := q.CorrectIndex
		if opts.rng.Float64() >= opts.accuracy {
			choice = (q.CorrectIndex + 1 + opts.rng.IntN(len(q.Options)-1)) % len(q.Options)
		}

		res, err := engine.SubmitAnswer(opts.learnerID, rec.ContentID, qi, choice)
		if err != nil {
			return err
		}

		mark := "wrong"
		if res.Correct {
			mark = "right"
		}
		fmt.Fprintf(out, "round %2d  %-12s %-26s q%d  %s  (%s)\n",
			round, curriculum.DisplayName(rec.LearnerLevel), rec.ContentID, qi+1, mark, rec.EstimatedTime)
		if res.LevelUp {
			fmt.Fprintf(out, "          level up: now %s\n", curriculum.DisplayName(res.NewLevel))
		}
	}

	report, err := engine.Analytics(opts.learnerID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	if report.Empty {
		fmt.Fprintln(out, report.Message)
		return nil
	}
	fmt.Fprintf(out, "level:        %s\n", curriculum.DisplayName(report.Overall.CurrentLevel))
	fmt.Fprintf(out, "attempts:     %d (%d correct, %.1f%%)\n",
		report.Overall.TotalAttempts, report.Overall.CorrectAttempts, report.Overall.SuccessRatePercent)
	fmt.Fprintf(out, "recent:       %.1f%% over %d attempts\n",
		report.Recent.SuccessRatePercent, report.Recent.Attempts)
	fmt.Fprintf(out, "state:        %s. %s\n", report.State, report.Recommendation)
	fmt.Fprintf(out, "success rate: %.3f, difficulty preference %.1f\n",
		report.Settings.SuccessRate, report.Settings.DifficultyPreference)

	stats, err := engine.SystemStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "system:       %d learners, %d interactions, %.1f%% correct, %d items\n",
		stats.TotalLearners, stats.TotalInteractions, stats.OverallSuccessRate, stats.ContentLibrarySize)

	return struggle(out, engine, opts)
}

// struggle submits wrong answers to the current recommendation and shows how
// the next recommendation adapts.
func struggle(out io.Writer, engine *adaptive.Engine, opts demoOptions) error {
	if opts.wrong <= 0 {
		return nil
	}
	fmt.Fprintln(out)
	for range opts.wrong {
		rec, err := engine.Recommend(opts.learnerID)
		if err != nil {
			return err
		}
		if !rec.Available {
			fmt.Fprintln(out, rec.Message)
			return nil
		}
		q := rec.Content.Questions[0]
		wrong := (q.CorrectIndex + 1) % len(q.Options)
		if _, err := engine.SubmitAnswer(opts.learnerID, rec.ContentID, 0, wrong); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrong answer on %s\n", rec.ContentID)
	}

	rec, err := engine.Recommend(opts.learnerID)
	if err != nil {
		return err
	}
	if !rec.Available {
		fmt.Fprintln(out, rec.Message)
		return nil
	}
	fmt.Fprintf(out, "next:         %s (difficulty %d). %s\n", rec.ContentID, rec.Content.Difficulty, rec.Reason)
	return nil
}
