package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ollacommit/cli/internal/benchmark"
	"ollacommit/cli/internal/commitmsg"
	"ollacommit/cli/internal/config"
	"ollacommit/cli/internal/erruser"
	"ollacommit/cli/internal/filter"
	"ollacommit/cli/internal/git"
	"ollacommit/cli/internal/ollama"
	"ollacommit/cli/internal/run"
	"ollacommit/cli/internal/trace"
	"ollacommit/cli/internal/tui"
	"ollacommit/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		fmt.Fprintln(os.Stderr, err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(os.Stderr, "Details: %v\n", u)
		}
		return erruser.ExitCode(err)
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ollacommit",
		Short:   "Generate commit messages for staged changes with a local Ollama model",
		Version: version.String(),
		Args:    cobra.NoArgs,
		RunE:    runCommit,
	}
	f := rootCmd.Flags()
	f.StringP("language", "l", "", "Language of the commit message (default english)")
	f.StringP("commit-type", "t", "", "Conventional commit type to use, e.g. feat or fix")
	f.String("template", "", "Template for the final message; {COMMIT_MESSAGE} and {GIT_BRANCH} are substituted")
	f.BoolP("emoji", "e", false, "Prefix messages with a gitmoji matching the commit type")
	f.BoolP("force", "f", false, "Commit the generated message without asking (ignored with --list)")
	f.Bool("list", false, "Generate several messages and pick one from a menu")
	f.IntP("num-options", "n", commitmsg.DefaultNumOptions, "Number of messages to generate with --list")
	f.Bool("filter-fee", false, "Show the estimated fee and ask before calling the model")
	f.Bool("copy", false, "Copy the chosen message to the clipboard instead of committing")
	f.Bool("trace", false, "Print the prompt and raw model output to stderr")
	f.Bool("stream", true, "Stream the model response (false sends one atomic request)")
	addConnectionFlags(rootCmd)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(newDoctorCmd())
	return rootCmd
}

// addConnectionFlags registers flags shared by the root command and doctor.
func addConnectionFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("api-key", "", "API key sent as a bearer token (overrides OLLACOMMIT_API_KEY)")
	f.StringP("model", "m", "", "Ollama model name")
	f.String("ollama-base-url", "", "Ollama API root, e.g. http://127.0.0.1:11434")
	f.Bool("debug", false, "Enable debug logging on stderr")
	f.Duration("timeout", 0, "Timeout for each model request, e.g. 2m (0 = no timeout)")
}

// overridesFromFlags returns Overrides for every flag the user set explicitly.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	flags := cmd.Flags()
	o := &config.Overrides{}
	str := func(name string, dst **string) {
		if fl := flags.Lookup(name); fl != nil && fl.Changed {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}
	boolean := func(name string, dst **bool) {
		if fl := flags.Lookup(name); fl != nil && fl.Changed {
			v, _ := flags.GetBool(name)
			*dst = &v
		}
	}
	str("model", &o.Model)
	str("ollama-base-url", &o.OllamaBaseURL)
	str("api-key", &o.APIKey)
	str("language", &o.Language)
	str("commit-type", &o.CommitType)
	str("template", &o.Template)
	boolean("emoji", &o.Emoji)
	boolean("list", &o.List)
	boolean("force", &o.Force)
	boolean("stream", &o.Stream)
	boolean("filter-fee", &o.FilterFee)
	boolean("debug", &o.Debug)
	if fl := flags.Lookup("timeout"); fl != nil && fl.Changed {
		v, _ := flags.GetDuration("timeout")
		o.Timeout = &v
	}
	if fl := flags.Lookup("num-options"); fl != nil && fl.Changed {
		v, _ := flags.GetInt("num-options")
		o.NumOptions = &v
	}
	return o
}

func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

func newOllamaClient(cfg *config.Config) *ollama.Client {
	var httpClient *http.Client
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return ollama.NewClient(cfg.OllamaBaseURL, httpClient).WithAPIKey(cfg.APIKey)
}

func runCommit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cwd, err := os.Getwd()
	if err != nil {
		return erruser.New("Could not determine current directory.", err)
	}
	repoRoot, err := git.RepoRoot(ctx, cwd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(ctx, config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Debug)

	diff, err := git.StagedDiff(ctx, repoRoot)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	prompter := tui.NewPrompter(cmd.InOrStdin(), out)
	var committer run.Committer = run.Announce(git.Committer{RepoRoot: repoRoot}, out, "Committing Message... 🚀", "Commit Successful! 🎉")
	if copyOnly, _ := cmd.Flags().GetBool("copy"); copyOnly {
		committer = run.Announce(tui.ClipboardCommitter{}, out, "", "Commit message copied to clipboard 📋")
	}
	var tracer *trace.Tracer
	if on, _ := cmd.Flags().GetBool("trace"); on {
		tracer = trace.New(cmd.ErrOrStderr())
	}
	temperature := cfg.Temperature

	client := newOllamaClient(cfg)
	log.Debug().
		Str("model", cfg.Model).
		Str("base_url", client.BaseURL()).
		Dur("timeout", cfg.Timeout).
		Bool("stream", cfg.Stream).
		Str("repo", repoRoot).
		Msg("Configuration loaded")

	res, err := run.Commit(ctx, run.Options{
		Diff:        diff,
		Generation:  cfg.GenerationOptions(),
		Model:       cfg.Model,
		Stream:      cfg.Stream,
		Temperature: &temperature,
		FilterFee:   cfg.FilterFee,
		Generator:   client,
		Gate: &filter.Filter{
			ContextLimit:  cfg.ContextLimit,
			WarnThreshold: cfg.WarnThreshold,
			FeePer1K:      cfg.FeePer1K,
			Confirm:       prompter,
			Out:           out,
			Log:           log,
		},
		Prompter:  prompter,
		Committer: committer,
		Processor: &commitmsg.Processor{
			Branch: func(ctx context.Context) (string, error) { return git.CurrentBranch(ctx, repoRoot) },
			Log:    log,
		},
		Waiter: tui.NewSpinner(log),
		Tracer: tracer,
		Out:    out,
		Log:    log,
	})
	if err != nil {
		return err
	}
	log.Debug().Int("generations", res.Generations).Msg("Done")
	return nil
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify environment (Ollama, Git, model)",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
	cmd.Flags().Bool("benchmark", false, "Generate one sample message and report model speed")
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	cwd, err := os.Getwd()
	if err != nil {
		return erruser.New("Could not determine current directory.", err)
	}
	repoRoot := ""
	if r, e := git.RepoRoot(ctx, cwd); e == nil {
		repoRoot = r
	}
	cfg, err := config.Load(ctx, config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	client := newOllamaClient(cfg)
	result, err := client.Check(ctx, cfg.Model)
	if err != nil {
		if errors.Is(err, ollama.ErrUnreachable) {
			fmt.Fprintf(errOut, "Ollama unreachable at %s. Is the server running? For local: ollama serve.\n", client.BaseURL())
			fmt.Fprintf(errOut, "Details: %v\n", err)
			return errExit(run.ExitTransport)
		}
		if errors.Is(err, ollama.ErrBadRequest) {
			fmt.Fprintf(errOut, "Ollama bad request at %s. %v\n", client.BaseURL(), err)
			return errExit(run.ExitTransport)
		}
		fmt.Fprintln(errOut, err.Error())
		return errExit(1)
	}
	if !result.ModelPresent {
		fmt.Fprintf(errOut, "Model %q not found. Pull it with: ollama pull %s\n", cfg.Model, cfg.Model)
		return errExit(1)
	}
	fmt.Fprintf(out, "Ollama OK (%s)\n", client.BaseURL())
	fmt.Fprintf(out, "Model: %s\n", cfg.Model)
	if repoRoot == "" {
		fmt.Fprintln(out, "Git: not inside a repository")
	} else {
		fmt.Fprintf(out, "Git: %s\n", repoRoot)
	}
	if cfg.Validate() != nil {
		fmt.Fprintln(out, "API key: not set (required to generate messages)")
	} else {
		fmt.Fprintln(out, "API key: set")
	}
	if on, _ := cmd.Flags().GetBool("benchmark"); on {
		res, err := benchmark.Run(ctx, client, cfg.Model, &ollama.GenerateOptions{Temperature: cfg.Temperature})
		if err != nil {
			return erruser.WithCode(run.ExitTransport, "Benchmark failed.", err)
		}
		fmt.Fprintf(out, "Sample message: %s\n", res.Message)
		fmt.Fprintf(out, "Prompt eval: %.1f tokens/s\n", res.PromptEvalRateTPS)
		fmt.Fprintf(out, "Generation: %.1f tokens/s\n", res.EvalRateTPS)
		fmt.Fprintf(out, "Load time: %.2fs\n", float64(res.LoadDurationNs)/1e9)
		fmt.Fprintf(out, "Estimated time per commit message: ~%.1fs\n", res.EstimatedSecPerCommit)
	}
	return nil
}
