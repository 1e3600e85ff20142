// Package deployer pushes WebJob archives to the hosting platform.
//
// A deployment is a linear pipeline: validate the request, check the
// control-plane CLI is installed, check the archive, make sure a session
// exists, then upload once. The exit status of the upload call is the only
// success signal.
package deployer

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/balaji-balu/wjdeploy/internal/config"
	"github.com/balaji-balu/wjdeploy/internal/logger"
	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

// ControlPlane is the subset of the platform CLI the orchestrator needs.
type ControlPlane interface {
	Available() error
	LoggedIn(ctx context.Context) bool
	Login(ctx context.Context) error
	Upload(ctx context.Context, req deployment.DeployRequest) (string, error)
	Start(ctx context.Context, slot deployment.Slot) (string, error)
}

type Orchestrator struct {
	cp          ControlPlane
	login       config.LoginPolicy
	interactive func() bool
	newID       func() string
	logger      *zap.Logger
	tracer      trace.Tracer
}

type Option func(*Orchestrator)

// WithLoginPolicy sets what happens when no session exists. The default is
// config.LoginAuto.
func WithLoginPolicy(p config.LoginPolicy) Option {
	return func(o *Orchestrator) { o.login = p }
}

// WithInteractive overrides terminal detection for config.LoginAuto.
func WithInteractive(f func() bool) Option {
	return func(o *Orchestrator) { o.interactive = f }
}

func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

func New(cp ControlPlane, l *zap.Logger, opts ...Option) *Orchestrator {
	if l == nil {
		l = zap.NewNop()
	}
	o := &Orchestrator{
		cp:          cp,
		login:       config.LoginAuto,
		interactive: stdinIsTerminal,
		newID:       uuid.NewString,
		logger:      l,
		tracer:      otel.Tracer("github.com/balaji-balu/wjdeploy/internal/deployer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Deploy uploads req.ArchivePath to the slot named by req. The returned
// result always carries the deployment ID; RawOutput is set once the upload
// call ran, whether it succeeded or not.
func (o *Orchestrator) Deploy(ctx context.Context, req deployment.DeployRequest) (deployment.DeployResult, error) {
	res := deployment.DeployResult{DeploymentID: o.newID()}

	ctx, span := o.tracer.Start(ctx, "deploy", trace.WithAttributes(
		attribute.String("deployment.id", res.DeploymentID),
		attribute.String("webjob.resource_group", req.ResourceGroup),
		attribute.String("webjob.service", req.ServiceName),
		attribute.String("webjob.name", req.JobName),
		attribute.String("webjob.type", string(req.JobType)),
	))
	defer span.End()
	log := logger.WithTrace(ctx, o.logger).With(
		zap.String("deployment_id", res.DeploymentID),
		zap.String("webjob", req.JobName),
	)

	if err := req.Validate(); err != nil {
		return res, fail(span, log, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}
	if err := o.cp.Available(); err != nil {
		return res, fail(span, log, fmt.Errorf("%w: %w", ErrToolingMissing, err))
	}
	// The archive is checked before the session so that a bad path never
	// reaches the network, login included.
	if err := checkArchive(req.ArchivePath); err != nil {
		return res, fail(span, log, err)
	}
	if err := o.ensureSession(ctx, log); err != nil {
		return res, fail(span, log, err)
	}

	log.Info("Uploading archive",
		zap.String("resource_group", req.ResourceGroup),
		zap.String("service", req.ServiceName),
		zap.String("archive", req.ArchivePath),
	)
	uctx, uspan := o.tracer.Start(ctx, "upload")
	out, err := o.cp.Upload(uctx, req)
	uspan.End()
	res.RawOutput = out
	if err != nil {
		return res, fail(span, log, fmt.Errorf("%w: %w", ErrUploadFailed, err))
	}

	res.Succeeded = true
	log.Info("Deployment completed successfully")
	return res, nil
}

// Start runs a triggered job or starts a continuous one. It shares the
// tooling and session preconditions of Deploy.
func (o *Orchestrator) Start(ctx context.Context, slot deployment.Slot) (string, error) {
	ctx, span := o.tracer.Start(ctx, "start", trace.WithAttributes(
		attribute.String("webjob.service", slot.ServiceName),
		attribute.String("webjob.name", slot.JobName),
	))
	defer span.End()
	log := logger.WithTrace(ctx, o.logger).With(zap.String("webjob", slot.JobName))

	if err := slot.Validate(); err != nil {
		return "", fail(span, log, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}
	if err := o.cp.Available(); err != nil {
		return "", fail(span, log, fmt.Errorf("%w: %w", ErrToolingMissing, err))
	}
	if err := o.ensureSession(ctx, log); err != nil {
		return "", fail(span, log, err)
	}
	out, err := o.cp.Start(ctx, slot)
	if err != nil {
		return out, fail(span, log, fmt.Errorf("%w: %w", ErrStartFailed, err))
	}
	log.Info("WebJob started", zap.String("type", string(slot.JobType)))
	return out, nil
}

func (o *Orchestrator) ensureSession(ctx context.Context, log *zap.Logger) error {
	if o.cp.LoggedIn(ctx) {
		return nil
	}
	switch o.login {
	case config.LoginNever:
		return fmt.Errorf("%w: no active session and login is disabled", ErrNotAuthenticated)
	case config.LoginAuto:
		if !o.interactive() {
			return fmt.Errorf("%w: no active session and stdin is not a terminal", ErrNotAuthenticated)
		}
	}
	log.Info("No active session, starting interactive login")
	ctx, span := o.tracer.Start(ctx, "login")
	defer span.End()
	if err := o.cp.Login(ctx); err != nil {
		return fmt.Errorf("%w: login: %w", ErrNotAuthenticated, err)
	}
	return nil
}

func checkArchive(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrArtifactNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
	}
	return f.Close()
}

func fail(span trace.Span, log *zap.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Warn("WebJob step failed", zap.Error(err))
	return err
}
