package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/balaji-balu/wjdeploy/internal/azcli"
	"github.com/balaji-balu/wjdeploy/internal/config"
	"github.com/balaji-balu/wjdeploy/internal/deployer"
	"github.com/balaji-balu/wjdeploy/internal/logger"
	"github.com/balaji-balu/wjdeploy/internal/telemetry"
)

const serviceName = "wjdeploy"

// app carries the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger

	// newControlPlane and interactive are replaced in tests.
	newControlPlane func(cfg config.Config, l *zap.Logger) deployer.ControlPlane
	interactive     func() bool

	shutdown func(context.Context) error

	stdout, stderr io.Writer
}

func newApp() *app {
	return &app{
		v: config.NewViper(),
		newControlPlane: func(cfg config.Config, l *zap.Logger) deployer.ControlPlane {
			return azcli.New(cfg.CLI, &azcli.ExecRunner{Logger: l})
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, newApp(), os.Args[1:])
}

func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	if a.stdout != nil {
		root.SetOut(a.stdout)
	}
	if a.stderr != nil {
		root.SetErr(a.stderr)
	}
	err := root.ExecuteContext(ctx)
	a.close(ctx)
	if err == nil {
		return 0
	}
	var rep *reportedError
	if !errors.As(err, &rep) {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return 1
}

// reportedError marks an error whose report was already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "wjdeploy",
		Short: "Package and deploy Azure App Service WebJobs",
		Long: `wjdeploy uploads WebJob archives to an Azure web app through the Azure CLI.

It checks that the CLI is installed, that the archive exists and that a
session is active (logging in when allowed) before it uploads anything.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./wjdeploy.yaml)")
	pf.BoolP("verbose", "v", false, "enable verbose logging")
	pf.String("cli", azcli.DefaultBinary, "control-plane CLI binary")
	pf.String("login", string(config.LoginAuto), "login when no session exists: auto, always or never")
	pf.String("trace", telemetry.ExporterNone, "trace exporter: none, stdout or otlp")
	pf.String("trace-endpoint", "", "OTLP gRPC endpoint (host:port)")

	a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	a.v.BindPFlag("cli", pf.Lookup("cli"))
	a.v.BindPFlag("login", pf.Lookup("login"))
	a.v.BindPFlag("trace.exporter", pf.Lookup("trace"))
	a.v.BindPFlag("trace.endpoint", pf.Lookup("trace-endpoint"))

	root.AddCommand(newDeployCmd(a), newStartCmd(a), newPackageCmd(a))
	return root
}

func (a *app) init(ctx context.Context) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("wjdeploy")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		if a.logger, err = logger.New(cfg.LogEnv, serviceName); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
	}
	if f := a.v.ConfigFileUsed(); f != "" {
		a.logger.Debug("Using config file", zap.String("path", f))
	}

	a.shutdown, err = telemetry.Init(ctx, telemetry.Config{
		Exporter:    cfg.Trace.Exporter,
		Endpoint:    cfg.Trace.Endpoint,
		ServiceName: serviceName,
	})
	return err
}

func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("Trace shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) orchestrator() *deployer.Orchestrator {
	opts := []deployer.Option{deployer.WithLoginPolicy(a.cfg.Login)}
	if a.interactive != nil {
		opts = append(opts, deployer.WithInteractive(a.interactive))
	}
	return deployer.New(a.newControlPlane(a.cfg, a.logger), a.logger, opts...)
}
