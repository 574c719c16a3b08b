package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/kolah/codepilot/internal/analyzer"
	"github.com/kolah/codepilot/internal/config"
	"github.com/kolah/codepilot/internal/logging"
	"github.com/kolah/codepilot/internal/model"
	"github.com/kolah/codepilot/internal/openapi"
	"github.com/kolah/codepilot/internal/schema"
	"github.com/kolah/codepilot/internal/server"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v4"
)

const (
	outputHuman = "human"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func AnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a snippet read from a file or stdin",
	}

	flags := cmd.PersistentFlags()
	flags.StringP("output", "o", outputHuman, "Output format: human, json, yaml")

	cmd.AddCommand(
		newAnalyzeControllerCmd(),
		newAnalyzeOpenAPICmd(),
		newAnalyzeAuthCmd(),
		newAnalyzeAuthFlowCmd(),
	)

	return cmd
}

func newAnalyzeControllerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "controller [file|-]",
		Short: "Score controller complexity and flag common omissions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, code, err := newSession(cmd, args)
			if err != nil {
				return err
			}

			if s.useAI() {
				var env *model.AnalysisEnvelope
				s.spin("Analyzing with AI...", func(ctx context.Context) {
					env, err = s.rt.orch.Analyze(ctx, code)
				})
				if err != nil {
					return err
				}
				return s.render(env, func(w io.Writer) { printAnalysisEnvelope(w, env) })
			}

			report, err := analyzer.AnalyzeController(code)
			if err != nil {
				return err
			}
			return s.render(report, func(w io.Writer) { printAnalysisReport(w, report) })
		},
	}
}

func newAnalyzeOpenAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openapi [file|-]",
		Short: "Infer an OpenAPI operation from a route registration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, code, err := newSession(cmd, args)
			if err != nil {
				return err
			}

			var (
				frag *model.Fragment
				env  *model.OpenAPIEnvelope
			)
			if s.useAI() {
				s.spin("Generating OpenAPI with AI...", func(ctx context.Context) {
					env, err = s.rt.orch.OpenAPI(ctx, code)
				})
				if err != nil {
					return err
				}
				frag = env.Fallback
				if env.Source == model.SourceAI {
					frag = env.AI
				}
			} else {
				frag, err = openapi.Infer(code)
				if err != nil {
					return err
				}
			}

			if document, _ := cmd.Flags().GetBool("document"); document {
				return s.renderDocument(cmd, frag)
			}
			if env != nil {
				return s.render(env, func(w io.Writer) { printOpenAPIEnvelope(w, env) })
			}
			return s.render(frag, func(w io.Writer) { printFragment(w, frag) })
		},
	}

	flags := cmd.Flags()
	flags.Bool("document", false, "Emit a complete OpenAPI 3.0 document instead of the bare operation")
	flags.String("title", "", "Document title (with --document)")
	flags.String("api-version", "", "Document version (with --document)")

	return cmd
}

func newAnalyzeAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth [file|-]",
		Short: "Check a route/middleware configuration (JSON or YAML) for leaks and role mismatches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, input, err := newSession(cmd, args)
			if err != nil {
				return err
			}

			raw, err := authConfigJSON([]byte(input))
			if err != nil {
				return err
			}
			cfg, err := schema.Validate[model.AuthConfig](raw, schema.AuthConfigShape)
			if err != nil {
				return err
			}

			report := analyzer.ValidateAuth(cfg)
			return s.render(report, func(w io.Writer) { printAuthReport(w, report) })
		},
	}
}

func newAnalyzeAuthFlowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-flow [file|-]",
		Short: "Review authentication code with the model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, code, err := newSession(cmd, args)
			if err != nil {
				return err
			}

			var env *model.AuthEnvelope
			s.spin("Reviewing auth flow with AI...", func(ctx context.Context) {
				env, err = s.rt.orch.Auth(ctx, code)
			})
			if err != nil {
				return err
			}
			return s.render(env, func(w io.Writer) { printAuthEnvelope(w, env) })
		},
	}
}

// session is one analyze invocation: loaded config, wired runtime and the
// chosen output format.
type session struct {
	cmd    *cobra.Command
	rt     *runtime
	format string
}

func newSession(cmd *cobra.Command, args []string) (*session, string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case outputHuman, outputJSON, outputYAML:
	default:
		return nil, "", fmt.Errorf("unsupported output format: %s (valid: human, json, yaml)", format)
	}

	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, "", err
	}

	// Diagnostics go to stderr so stdout stays parseable.
	level := "warn"
	if cmd.Flags().Changed("log-level") {
		level = cfg.Log.Level
	}
	log := logging.NewWriter(cmd.ErrOrStderr(), level, logging.FormatConsole, server.ServiceName)

	rt, err := newRuntime(cfg, log)
	if err != nil {
		return nil, "", err
	}

	input, err := readInput(cmd, args)
	if err != nil {
		return nil, "", err
	}

	return &session{cmd: cmd, rt: rt, format: format}, input, nil
}

func (s *session) useAI() bool {
	return s.rt.cfg.AI.Enabled
}

// spin runs fn behind a stderr spinner when a model call is possible.
func (s *session) spin(msg string, fn func(ctx context.Context)) {
	ctx := s.cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.rt.ai.Enabled() {
		fn(ctx)
		return
	}

	sp := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(s.cmd.ErrOrStderr()))
	sp.Suffix = " " + msg
	sp.Start()
	defer sp.Stop()

	fn(ctx)
}

func (s *session) render(v any, human func(io.Writer)) error {
	w := s.cmd.OutOrStdout()

	switch s.format {
	case outputJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case outputYAML:
		out, err := toYAML(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		human(w)
		return nil
	}
}

func (s *session) renderDocument(cmd *cobra.Command, frag *model.Fragment) error {
	title, _ := cmd.Flags().GetString("title")
	version, _ := cmd.Flags().GetString("api-version")

	format := s.format
	if format == outputHuman {
		format = outputYAML
	}

	out, err := openapi.MarshalDocument(frag, openapi.Info{Title: title, Version: version}, format)
	if err != nil {
		return err
	}
	_, err = s.cmd.OutOrStdout().Write(out)
	return err
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

// authConfigJSON accepts JSON as is and converts anything else from YAML.
func authConfigJSON(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("auth config is empty")
	}
	if trimmed[0] == '{' {
		return string(trimmed), nil
	}

	var v any
	if err := yaml.Unmarshal(trimmed, &v); err != nil {
		return "", fmt.Errorf("parsing auth config: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("converting auth config: %w", err)
	}
	return string(out), nil
}

// toYAML goes through JSON so custom marshalers (envelopes) keep their
// shape and key order.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)

	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
