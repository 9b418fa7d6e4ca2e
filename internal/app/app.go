package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/cli"
	"github.com/rbright/signcap/internal/config"
	"github.com/rbright/signcap/internal/doctor"
	"github.com/rbright/signcap/internal/ipc"
	"github.com/rbright/signcap/internal/logging"
	"github.com/rbright/signcap/internal/version"
)

const (
	binaryName     = "signcap"
	forwardTimeout = 220 * time.Millisecond
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	if r.Stdin == nil {
		r.Stdin = strings.NewReader("")
	}

	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath, parsed.EnvFile)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"env_file", cfgLoaded.EnvFile,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandUndo:
		return r.forwardOrFail(ctx, ipc.CommandUndo)
	case cli.CommandClear:
		return r.forwardOrFail(ctx, ipc.CommandClear)
	case cli.CommandStubServer:
		return r.commandStubServer(ctx, parsed, logger)
	}

	svc, err := newServices(cfgLoaded.Config, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("build services failed", "error", err.Error())
		return 1
	}
	defer svc.Close()

	switch parsed.Command {
	case cli.CommandTranslate:
		return r.commandTranslate(ctx, svc)
	case cli.CommandLesson:
		return r.commandLesson(ctx, svc, parsed.Args)
	case cli.CommandListen:
		return r.commandListen(ctx, svc)
	case cli.CommandReport:
		return r.commandReport(ctx, svc, parsed.Args)
	case cli.CommandProgress:
		return r.commandProgress(ctx, svc)
	case cli.CommandLogin:
		return r.commandLogin(ctx, svc, parsed.Args)
	case cli.CommandSignup:
		return r.commandSignup(ctx, svc, parsed.Args)
	case cli.CommandLogout:
		return r.commandLogout(ctx, svc)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}
