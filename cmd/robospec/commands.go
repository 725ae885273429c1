package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"robospec/internal/corrector"
	"robospec/internal/normalizer"
	"robospec/internal/packaging"
	"robospec/internal/repair"
	"robospec/internal/task"
	"robospec/internal/validator"
)

var (
	categoryFlag string
	writeFlag    bool
	outFlag      string
	jobsFlag     int
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate env config files without changing them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize FILE",
	Short: "Apply the deterministic category rewrites",
	Args:  cobra.ExactArgs(1),
	RunE:  runNormalize,
}

var correctCmd = &cobra.Command{
	Use:   "correct FILE",
	Short: "Replace known wrong MDP function names",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorrect,
}

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Run the local pass: normalize, correct, validate",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var repairCmd = &cobra.Command{
	Use:   "repair FILE",
	Short: "Run the bounded repair loop against the configured model",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepair,
}

func init() {
	for _, c := range []*cobra.Command{normalizeCmd, checkCmd, repairCmd} {
		c.Flags().StringVar(&categoryFlag, "category", "", "Task category (see 'robospec categories')")
	}
	checkCmd.MarkFlagRequired("category")
	repairCmd.MarkFlagRequired("category")

	for _, c := range []*cobra.Command{normalizeCmd, correctCmd, checkCmd, repairCmd} {
		c.Flags().BoolVarP(&writeFlag, "write", "w", false, "Write the result back to FILE")
	}
	repairCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the result to this file")
	validateCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", 4, "Files validated in parallel")
}

// errNotValid makes the process exit non-zero without extra output.
type errNotValid struct{ failed, total int }

func (e errNotValid) Error() string {
	return fmt.Sprintf("%d of %d files failed validation", e.failed, e.total)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// emit writes code to path when set, or stdout.
func emit(cmd *cobra.Command, path, code string) error {
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), code)
		return err
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func target(file string) string {
	if writeFlag {
		return file
	}
	return outFlag
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := validator.New(newRegistry(cfg))
	verdicts := make([]validator.Verdict, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(jobsFlag, 1))
	for i, path := range args {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			code, err := readSource(path)
			if err != nil {
				return err
			}
			verdicts[i] = v.Validate(code)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, path := range args {
		renderVerdict(cmd.OutOrStdout(), path, verdicts[i])
		if !verdicts[i].Valid {
			failed++
		}
	}
	if failed > 0 {
		return errNotValid{failed, len(args)}
	}
	return nil
}

func runNormalize(cmd *cobra.Command, args []string) error {
	code, err := readSource(args[0])
	if err != nil {
		return err
	}
	out, fixes := normalizer.New(nil).Normalize(code, categoryFlag)
	renderNotes(cmd.ErrOrStderr(), "fix", fixes)
	return emit(cmd, target(args[0]), out)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	code, err := readSource(args[0])
	if err != nil {
		return err
	}
	out, notes := corrector.Correct(code)
	renderNotes(cmd.ErrOrStderr(), "correction", notes)
	return emit(cmd, target(args[0]), out)
}

func runCheck(cmd *cobra.Command, args []string) error {
	code, err := readSource(args[0])
	if err != nil {
		return err
	}
	e, err := newEngine(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.orchestrator.Run(cmd.Context(), code, categoryFlag, "")
	if err != nil {
		return err
	}
	return finish(cmd, args[0], out)
}

func runRepair(cmd *cobra.Command, args []string) error {
	code, err := readSource(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, err := newRemoteEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	knowledgeText, err := knowledgeFor(categoryFlag)
	if err != nil {
		return err
	}
	out, err := e.orchestrator.Run(ctx, code, categoryFlag, knowledgeText)
	if err != nil {
		if out != nil {
			renderOutcome(cmd.ErrOrStderr(), args[0], out)
		}
		return err
	}
	return finish(cmd, args[0], out)
}

// finish reports an outcome and writes the code when asked.
func finish(cmd *cobra.Command, file string, out *repair.Outcome) error {
	renderOutcome(cmd.ErrOrStderr(), file, out)
	if path := target(file); path != "" {
		if err := emit(cmd, path, out.Code); err != nil {
			return err
		}
	}
	if !out.Accepted() {
		return errNotValid{1, 1}
	}
	return nil
}

var (
	robotFlag         string
	objectiveFlags    []string
	constraintFlags   []string
	difficultyFlag    string
	episodeLengthFlag float64
	numEnvsFlag       int
	descriptionFlag   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate, repair and package a new task config",
	Example: `  robospec generate --category classic_cartpole --robot cartpole \
      --objective "balance the pole" --objective "keep the cart centered"`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&categoryFlag, "category", "", "Task category")
	f.StringVar(&robotFlag, "robot", "", "Robot key (see 'robospec categories')")
	f.StringArrayVar(&objectiveFlags, "objective", nil, "Task objective (repeatable)")
	f.StringArrayVar(&constraintFlags, "constraint", nil, "Task constraint (repeatable)")
	f.StringVar(&difficultyFlag, "difficulty", "", "easy, medium or hard")
	f.Float64Var(&episodeLengthFlag, "episode-length", 0, "Episode length in seconds (max 20)")
	f.IntVar(&numEnvsFlag, "num-envs", 0, "Number of parallel environments")
	f.StringVar(&descriptionFlag, "description", "", "Free-form task description")
	f.StringVarP(&outFlag, "out", "o", "", "Output directory (default from config)")
	generateCmd.MarkFlagRequired("category")
	generateCmd.MarkFlagRequired("robot")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	spec := task.Spec{
		Category:      categoryFlag,
		Robot:         robotFlag,
		Description:   descriptionFlag,
		Objectives:    objectiveFlags,
		Constraints:   constraintFlags,
		Difficulty:    difficultyFlag,
		EpisodeLength: episodeLengthFlag,
		NumEnvs:       numEnvsFlag,
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, err := newRemoteEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.orchestrator.GenerateAndRun(ctx, spec)
	if err != nil {
		if out != nil {
			renderOutcome(cmd.ErrOrStderr(), spec.Category, out)
		}
		return err
	}
	renderOutcome(cmd.ErrOrStderr(), spec.Category, out)

	pkg, err := packaging.Build(ctx, nil, spec, out)
	if err != nil {
		return err
	}
	root := outFlag
	if root == "" {
		root = cfg.Output.Dir
	}
	dir, err := pkg.Write(root)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", titleStyle.Render(pkg.TaskID), out.State, dir)
	if pkg.Train != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "train: ./isaaclab.sh -p %s --headless\n", filepath.Join(dir, packaging.TrainFile))
	}
	return nil
}
