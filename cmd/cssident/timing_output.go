package main

import (
	"fmt"
	"io"
	"time"

	"cssident/internal/buildpipeline"
)

var stageVerbs = map[buildpipeline.Stage]string{
	buildpipeline.StageLoad:     "loaded",
	buildpipeline.StageScan:     "scanned",
	buildpipeline.StageAllocate: "allocated",
	buildpipeline.StageRewrite:  "rewrote",
	buildpipeline.StageEmit:     "emitted",
}

func printStageTimings(out io.Writer, timings buildpipeline.Timings) error {
	if out == nil {
		return nil
	}
	for _, stage := range buildpipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", stageVerbs[stage], toMillis(timings.Duration(stage))); err != nil {
			return err
		}
	}
	total := timings.Sum(buildpipeline.Stages...)
	_, err := fmt.Fprintf(out, "total %.1f ms\n", toMillis(total))
	return err
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
