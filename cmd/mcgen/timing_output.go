package main

import (
	"fmt"
	"io"

	"mcgen/internal/lowerpipeline"
	"mcgen/internal/observ"
)

func printStageTimings(out io.Writer, timings lowerpipeline.Timings, passes *observ.Timer) error {
	if out == nil {
		return nil
	}
	for _, stage := range lowerpipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", stage, toMillis(timings.Duration(stage))); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(out, "total %.1f ms\n", toMillis(timings.Total())); err != nil {
		return err
	}
	if passes == nil || len(passes.Passes()) == 0 {
		return nil
	}
	_, err := io.WriteString(out, passes.Summary())
	return err
}
