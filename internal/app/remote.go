package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/signcap/internal/ipc"
)

func (r Runner) commandStatus(ctx context.Context) int {
	resp, err := forward(ctx, ipc.CommandStatus)
	if err != nil {
		if errors.Is(err, ipc.ErrNoOwner) || errors.Is(err, ipc.ErrRuntimeDirUnset) {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if resp.Sentence != "" {
		fmt.Fprintf(r.Stdout, "sentence: %s\n", resp.Sentence)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	resp, err := forward(ctx, command)
	if errors.Is(err, ipc.ErrNoOwner) {
		fmt.Fprintln(r.Stderr, "error: no active translate screen")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if command == ipc.CommandUndo || command == ipc.CommandClear {
		fmt.Fprintf(r.Stdout, "sentence: %s\n", resp.Sentence)
	}
	return 0
}

// forward relays command to the translate screen; an error response from
// the owner comes back as an error.
func forward(ctx context.Context, command string) (ipc.Response, error) {
	resp, err := ipc.Forward(ctx, command, forwardTimeout)
	if err != nil {
		if errors.Is(err, ipc.ErrNoOwner) || errors.Is(err, ipc.ErrRuntimeDirUnset) {
			return ipc.Response{}, err
		}
		return ipc.Response{}, fmt.Errorf("forward command %q: %w", command, err)
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
