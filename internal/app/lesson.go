package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/cli"
	"github.com/rbright/signcap/internal/lesson"
)

// commandLesson runs the fingerspelling alphabet from the saved letter. A
// "q" line ends the lesson early; end of input does not.
func (r Runner) commandLesson(ctx context.Context, svc *services, args []string) int {
	start := 0
	restart := len(args) > 0 && args[0] == cli.LessonRestart
	if len(args) > 0 && !restart {
		fmt.Fprintf(r.Stderr, "error: unknown lesson argument %q (want %q)\n", args[0], cli.LessonRestart)
		return 2
	}

	if !restart {
		saved, err := svc.progress.Load(ctx)
		switch {
		case err == nil:
			start = saved
		case errors.Is(err, apperr.ErrAuthenticationRequired):
			fmt.Fprintln(r.Stderr, "not signed in; lesson progress will not be saved")
		default:
			fmt.Fprintf(r.Stderr, "warning: load lesson progress: %v\n", err)
			svc.logger.Warn("load lesson progress failed", "error", err.Error())
		}
	}

	if err := svc.camera.CheckDevice(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	sess := lesson.NewSession(start, svc.cfg.Lesson.Cooldown(), svc.progress, svc.logger)
	r.printLetter(sess.Snapshot())

	lessonCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for line := range readLines(r.Stdin, done) {
			if strings.EqualFold(strings.TrimSpace(line), "q") {
				cancel()
				return
			}
		}
	}()

	runner := lesson.Runner{
		Frames:       svc.camera,
		Gestures:     svc.recognizer,
		Session:      sess,
		PollInterval: svc.cfg.Lesson.PollInterval(),
		SaveInterval: svc.cfg.Lesson.SaveInterval(),
		Logger:       svc.logger,
		OnUpdate: func(snap lesson.Snapshot) {
			fmt.Fprintln(r.Stdout, snap.Message)
			if !snap.Finished {
				r.printLetter(snap)
			}
		},
	}
	if err := runner.Run(lessonCtx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	final := sess.Snapshot()
	if final.Finished {
		fmt.Fprintf(r.Stdout, "Lesson complete! Final score: %d\n", final.Score)
	} else {
		fmt.Fprintf(r.Stdout, "Stopped at %s (%d/%d). Score: %d\n", final.Letter, final.Index+1, final.Total, final.Score)
	}
	return 0
}

func (r Runner) printLetter(snap lesson.Snapshot) {
	fmt.Fprintf(r.Stdout, "Sign the letter %s (%d/%d)  score %d\n", snap.Letter, snap.Index+1, snap.Total, snap.Score)
}
