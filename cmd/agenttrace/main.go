// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// agenttrace invokes a Bedrock agent and exports the invocation
// trace to an observability backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/candelalabs/agenttrace"
	"github.com/candelalabs/agenttrace/agent"
	"github.com/candelalabs/agenttrace/app"
	"github.com/candelalabs/agenttrace/appbuilder"
	"github.com/candelalabs/agenttrace/completion"
	"github.com/candelalabs/agenttrace/config"
	"github.com/candelalabs/agenttrace/observe"
	"github.com/candelalabs/agenttrace/otelslog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

func main() {
	err := rootCmd().ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	var input string

	cmd := &cobra.Command{
		Use:   "agenttrace",
		Short: "Invoke a Bedrock agent and trace the invocation",
		Long: `agenttrace invokes an Amazon Bedrock agent, streams its response
and exports the invocation trace over OTLP to an observability
backend e.g. Langfuse.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			builder := appbuilder.Recover(
				appbuilder.OTel(
					agenttrace.AppBuilderFunc[appConfig](buildApp(input)),
				),
			)

			return agenttrace.Run(
				cmd.Context(),
				builder,
				configSource(cfgPath),
			)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config.yaml", "Path of the config file (yaml or json)")
	cmd.Flags().StringVar(&input, "input", "", "Prompt for the agent. Overrides the configured input")
	return cmd
}

func configSource(path string) config.Source {
	f := config.NewFileReader(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if filepath.Ext(path) == ".json" {
		return config.FromJson(f)
	}
	return config.FromYaml(f)
}

type telemetryConfig struct {
	// Backend selects where spans are exported: langfuse, otlp,
	// stdout or none.
	Backend string `config:"backend"`

	ServiceName string `config:"serviceName"`
	Environment string `config:"environment"`

	Langfuse struct {
		Host      string `config:"host"`
		PublicKey string `config:"publicKey"`
		SecretKey string `config:"secretKey"`
	} `config:"langfuse"`

	OTLP struct {
		Target string `config:"target"`
	} `config:"otlp"`
}

type agentConfig struct {
	ID                string   `config:"id"`
	AliasID           string   `config:"aliasId"`
	SessionID         string   `config:"sessionId"`
	Streaming         bool     `config:"streaming"`
	GuardrailInterval int32    `config:"guardrailInterval"`
	UserID            string   `config:"userId"`
	ModelID           string   `config:"modelId"`
	Tags              []string `config:"tags"`
}

type inlineAgentConfig struct {
	FoundationModel string `config:"foundationModel"`
	Instruction     string `config:"instruction"`
}

type appConfig struct {
	Telemetry telemetryConfig `config:"telemetry"`

	AWS struct {
		Region string `config:"region"`
	} `config:"aws"`

	Agent  agentConfig       `config:"agent"`
	Inline inlineAgentConfig `config:"inline"`

	Input string `config:"input"`
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
func (cfg appConfig) InitializeOTel(ctx context.Context) error {
	init := cfg.Telemetry.initializer()

	tp, err := init.Init(ctx)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	return nil
}

func (cfg telemetryConfig) initializer() observe.Initializer {
	common := []observe.CommonOption{
		observe.ServiceName(cfg.ServiceName),
		observe.Environment(cfg.Environment),
	}

	switch cfg.Backend {
	case "langfuse":
		lf := cfg.Langfuse

		// The key pair is usually kept out of the config file.
		if lf.Host == "" {
			lf.Host = os.Getenv("LANGFUSE_HOST")
		}
		if lf.PublicKey == "" {
			lf.PublicKey = os.Getenv("LANGFUSE_PUBLIC_KEY")
		}
		if lf.SecretKey == "" {
			lf.SecretKey = os.Getenv("LANGFUSE_SECRET_KEY")
		}

		opts := make([]observe.LangfuseOption, 0, len(common)+2)
		for _, opt := range common {
			opts = append(opts, opt)
		}
		return observe.Langfuse(append(
			opts,
			observe.LangfuseHost(lf.Host),
			observe.LangfuseKeys(lf.PublicKey, lf.SecretKey),
		)...)
	case "otlp":
		opts := make([]observe.OTLPOption, 0, len(common)+1)
		for _, opt := range common {
			opts = append(opts, opt)
		}
		return observe.OTLP(append(opts, observe.OTLPTarget(cfg.OTLP.Target))...)
	case "local", "stdout":
		opts := make([]observe.LocalOption, 0, len(common))
		for _, opt := range common {
			opts = append(opts, opt)
		}
		return observe.Local(opts...)
	default:
		return observe.Noop
	}
}

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

func buildApp(input string) func(context.Context, appConfig) (agenttrace.App, error) {
	return func(ctx context.Context, cfg appConfig) (agenttrace.App, error) {
		log := otelslog.New(slog.NewJSONHandler(os.Stderr, nil))

		if input != "" {
			cfg.Input = input
		}

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWS.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWS.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}

		clientOpts := []agent.ClientOption{
			agent.LogHandler(log.Handler()),
		}
		if cfg.Agent.GuardrailInterval > 0 {
			clientOpts = append(clientOpts, agent.ApplyGuardrailInterval(cfg.Agent.GuardrailInterval))
		}
		client := agent.NewFromConfig(awsCfg, clientOpts...)

		var base agenttrace.App = runFunc(func(ctx context.Context) error {
			res, err := invoke(ctx, client, cfg)
			if err != nil {
				return err
			}

			if res.Truncated {
				log.WarnContext(ctx, "agent response is incomplete")
			}
			fmt.Println(res.Text)
			return nil
		})

		base = app.Recover(base)
		base = app.WithSignalNotifications(base, os.Interrupt, os.Kill)
		return base, nil
	}
}

func invoke(ctx context.Context, client *agent.Client, cfg appConfig) (completion.Result, error) {
	if cfg.Inline.FoundationModel != "" {
		return client.CompleteInline(ctx, agent.InlineRequest{
			FoundationModel: cfg.Inline.FoundationModel,
			Instruction:     cfg.Inline.Instruction,
			InputText:       cfg.Input,
			SessionID:       cfg.Agent.SessionID,
			Streaming:       cfg.Agent.Streaming,
			UserID:          cfg.Agent.UserID,
			Tags:            cfg.Agent.Tags,
		})
	}

	return client.Complete(ctx, agent.Request{
		AgentID:      cfg.Agent.ID,
		AgentAliasID: cfg.Agent.AliasID,
		SessionID:    cfg.Agent.SessionID,
		InputText:    cfg.Input,
		Streaming:    cfg.Agent.Streaming,
		UserID:       cfg.Agent.UserID,
		ModelID:      cfg.Agent.ModelID,
		Tags:         cfg.Agent.Tags,
	})
}
