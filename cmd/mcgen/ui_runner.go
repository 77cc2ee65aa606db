package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mcgen/internal/lowerpipeline"
	"mcgen/internal/target"
	"mcgen/internal/ui"
)

type lowerOutcome struct {
	result lowerpipeline.Result
	err    error
}

// runLowerWithUI lowers req in the background while the progress view
// renders its events on stderr.
func runLowerWithUI(ctx context.Context, title string, reg *target.Registry, req *lowerpipeline.Request) (lowerpipeline.Result, error) {
	if req == nil {
		return lowerpipeline.Result{}, fmt.Errorf("missing lowering request")
	}
	funcs, passes, err := lowerpipeline.Plan(reg, req)
	if err != nil {
		return lowerpipeline.Result{}, err
	}
	events := make(chan lowerpipeline.Event, 256)
	outcomeCh := make(chan lowerOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = lowerpipeline.ChannelSink{Ch: events}
		res, err := lowerpipeline.Lower(ctx, reg, &reqCopy)
		outcomeCh <- lowerOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, funcs, passes, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
