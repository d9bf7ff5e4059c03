package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KaramelBytes/appforge-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/appforge-cli/internal/config"
	"github.com/KaramelBytes/appforge-cli/internal/extract"
	"github.com/KaramelBytes/appforge-cli/internal/prompt"
	"github.com/KaramelBytes/appforge-cli/internal/scaffold"
	"github.com/KaramelBytes/appforge-cli/internal/ui"
	"github.com/KaramelBytes/appforge-cli/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	buildOutDir        string
	buildModel         string
	buildDryRun        bool
	buildOnError       string
	buildManifest      bool
	buildShowStructure bool
	buildTimeoutSec    int
)

func registerBuildFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVarP(&buildOutDir, "out", "o", "", "output directory (default from config, else current directory)")
	f.StringVar(&buildModel, "model", "", "model id (overrides config)")
	f.BoolVar(&buildDryRun, "dry-run", false, "list the files that would be written without touching disk")
	f.StringVar(&buildOnError, "on-error", "", "on a failed file write: halt|continue (overrides config)")
	f.BoolVar(&buildManifest, "manifest", false, "record the run under <out>/.appforge/")
	f.BoolVar(&buildShowStructure, "show-structure", false, "print the structure returned by the model")
	f.IntVar(&buildTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
}

// buildOptions is the effective configuration of one run.
type buildOptions struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float64
	HTTPTimeout   time.Duration
	RetryMax      int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	OutputDir     string
	Policy        scaffold.Policy
	DryRun        bool
	Manifest      bool
	ShowStructure bool
}

type buildDeps struct {
	newRuntime func(opts buildOptions, runID string) ai.Runtime
	fs         afero.Fs
	newRunID   func() string
}

var defaultBuildDeps = buildDeps{
	newRuntime: defaultNewRuntime,
	fs:         afero.NewOsFs(),
	newRunID:   uuid.NewString,
}

func defaultNewRuntime(opts buildOptions, runID string) ai.Runtime {
	return ai.NewClient(ai.ClientConfig{
		BaseURL:     opts.BaseURL,
		APIKey:      opts.APIKey,
		HTTPTimeout: opts.HTTPTimeout,
		RetryMax:    opts.RetryMax,
		BaseDelay:   opts.BaseDelay,
		MaxDelay:    opts.MaxDelay,
		RequestID:   runID,
	})
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts, err := resolveBuildOptions(cfg, cmd)
	if err != nil {
		return err
	}
	return executeBuild(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args, opts, defaultBuildDeps)
}

// resolveBuildOptions applies flags set on this invocation over the loaded config.
func resolveBuildOptions(c *cfgpkg.Global, cmd *cobra.Command) (buildOptions, error) {
	if c == nil {
		return buildOptions{}, errors.New("configuration not loaded")
	}
	if err := c.Validate(); err != nil {
		return buildOptions{}, err
	}
	opts := buildOptions{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		OutputDir:   c.OutputDir,
		Manifest:    c.WriteManifest,
	}
	policy := c.OnError

	f := cmd.Flags()
	if f.Changed("out") {
		opts.OutputDir = buildOutDir
	}
	if f.Changed("model") && buildModel != "" {
		opts.Model = buildModel
	}
	if f.Changed("on-error") {
		policy = buildOnError
	}
	if f.Changed("http-timeout") && buildTimeoutSec > 0 {
		opts.HTTPTimeout = time.Duration(buildTimeoutSec) * time.Second
	}
	if f.Changed("manifest") {
		opts.Manifest = buildManifest
	}
	if f.Changed("dry-run") {
		opts.DryRun = buildDryRun
	}
	if f.Changed("show-structure") {
		opts.ShowStructure = buildShowStructure
	}

	p, err := scaffold.ParsePolicy(policy)
	if err != nil {
		return buildOptions{}, err
	}
	opts.Policy = p
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	dir, err := utils.ExpandHome(opts.OutputDir)
	if err != nil {
		return buildOptions{}, err
	}
	opts.OutputDir = dir
	return opts, nil
}

// executeBuild runs the pipeline: read description, prompt, complete, extract, write.
func executeBuild(ctx context.Context, in io.Reader, out io.Writer, args []string, opts buildOptions, deps buildDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.newRuntime == nil {
		deps.newRuntime = defaultNewRuntime
	}
	if deps.fs == nil {
		deps.fs = afero.NewOsFs()
	}
	if deps.newRunID == nil {
		deps.newRunID = uuid.NewString
	}
	runID := deps.newRunID()
	logger := log.WithFields(logrus.Fields{"run_id": runID, "model": opts.Model})

	ui.Banner(out, "AI App Builder")
	description, err := readDescription(in, out, args)
	if err != nil {
		return err
	}

	ui.Step(out, "Asking AI to generate your project structure...")
	text := prompt.Build(description)
	tokens := utils.CountTokens(text)
	logger.WithField("prompt_tokens", tokens).Debug("prompt built")
	if err := ai.CheckPromptFits(opts.Model, tokens, opts.MaxTokens); err != nil {
		ui.Warn(out, "%v", err)
	}

	req := ai.UserPrompt(opts.Model, text)
	req.MaxTokens = opts.MaxTokens
	req.Temperature = opts.Temperature

	start := time.Now()
	resp, err := deps.newRuntime(opts, runID).Generate(ctx, req)
	if err != nil {
		logger.WithError(err).WithField("status", ai.StatusOf(err)).Error("completion request failed")
		ui.Fail(out, "Error communicating with AI API: %v", err)
		return reported(err)
	}
	raw := resp.Raw
	if len(raw) == 0 {
		// Runtimes that do not keep the body still get a navigable envelope.
		if raw, err = json.Marshal(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
	logger.WithFields(logrus.Fields{
		"elapsed":           time.Since(start).Round(time.Millisecond).String(),
		"request_id":        resp.RequestID,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("completion received")

	result, err := extract.FromEnvelope(raw)
	if err != nil {
		entry := logger.WithError(err).WithField("raw_preview", utils.Preview(string(raw), 400))
		var ee *extract.ExtractionError
		if errors.As(err, &ee) && ee.Span != "" {
			entry = entry.WithField("brace_span", utils.Preview(ee.Span, 400))
		}
		entry.Debug("extraction failed")
		ui.Fail(out, "Error parsing AI response: %v", err)
		fmt.Fprintln(out, "Raw AI response:", string(raw))
		return reported(err)
	}
	logger.WithFields(logrus.Fields{"files": len(result.Files), "structure": string(result.Structure)}).Debug("generation decoded")
	if opts.ShowStructure {
		printStructure(out, result.Structure)
	}

	ui.Step(out, "Creating files and folders...")
	w := scaffold.NewWriter(opts.OutputDir, out)
	w.Fs = deps.fs
	w.Policy = opts.Policy
	w.DryRun = opts.DryRun
	w.Log = logger
	rep, werr := w.Write(result.Files)

	if opts.Manifest && !opts.DryRun {
		m := scaffold.NewManifest(runID, opts.Model, description, result.Structure, rep)
		if path, err := scaffold.SaveManifest(deps.fs, opts.OutputDir, m); err != nil {
			ui.Warn(out, "Could not save manifest: %v", err)
		} else {
			ui.Success(out, "Saved manifest to %s", path)
		}
	}

	if werr != nil {
		ui.Fail(out, "Wrote %d of %d files: %v", len(rep.Written), len(result.Files), werr)
		for _, f := range rep.Failed {
			if scaffold.IsPathError(f.Err) {
				ui.Warn(out, "Rejected paths must stay inside %s", opts.OutputDir)
				break
			}
		}
		return reported(werr)
	}
	if opts.DryRun {
		ui.Step(out, fmt.Sprintf("Dry run: %d files would be written.", len(rep.Skipped)))
		return nil
	}
	ui.Step(out, "All done! Your project is ready.")
	return nil
}

// readDescription joins args, or reads a single line from in.
func readDescription(in io.Reader, out io.Writer, args []string) (string, error) {
	if len(args) > 0 {
		d := strings.Join(args, " ")
		fmt.Fprintf(out, "Project: %s\n", d)
		return d, nil
	}
	fmt.Fprint(out, "Describe your app/project: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read description: %w", err)
		}
		if line == "" {
			return "", errors.New("no project description provided on stdin")
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printStructure(out io.Writer, structure json.RawMessage) {
	fmt.Fprintln(out, "\nStructure:")
	var v any
	if err := json.Unmarshal(structure, &v); err != nil {
		fmt.Fprintln(out, string(structure))
		return
	}
	b, err := utils.PrettyJSON(v)
	if err != nil {
		fmt.Fprintln(out, string(structure))
		return
	}
	fmt.Fprintln(out, string(b))
}
