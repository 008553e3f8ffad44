package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssident/internal/buildpipeline"
)

func newModel(t *testing.T, title string, files ...string) *progressModel {
	t.Helper()
	m, ok := NewProgressModel(title, files, nil).(*progressModel)
	require.True(t, ok)
	return m
}

func feed(m *progressModel, events ...buildpipeline.Event) {
	for _, ev := range events {
		m.applyEvent(ev)
	}
}

func fileEvent(file string, stage buildpipeline.Stage, status buildpipeline.Status) buildpipeline.Event {
	return buildpipeline.Event{File: file, Stage: stage, Status: status}
}

func TestQueuedEventsAddFiles(t *testing.T) {
	m := newModel(t, "build")
	feed(m,
		fileEvent("a.module.css", buildpipeline.StageScan, buildpipeline.StatusQueued),
		fileEvent("b.module.css", buildpipeline.StageScan, buildpipeline.StatusQueued),
		fileEvent("ghost.css", buildpipeline.StageScan, buildpipeline.StatusWorking),
	)
	require.Len(t, m.files, 2)
	assert.Equal(t, "a.module.css", m.files[0].path)
	assert.Equal(t, "queued", m.files[1].label())
}

func TestPercentFollowsStages(t *testing.T) {
	m := newModel(t, "build", "a.css", "b.css")
	assert.InDelta(t, 0.0, m.percent(), 1e-9)

	feed(m,
		fileEvent("a.css", buildpipeline.StageScan, buildpipeline.StatusDone),
		fileEvent("b.css", buildpipeline.StageScan, buildpipeline.StatusWorking),
	)
	assert.InDelta(t, (0.4+0.1)/2, m.percent(), 1e-9)

	feed(m,
		fileEvent("a.css", buildpipeline.StageEmit, buildpipeline.StatusDone),
		buildpipeline.Event{File: "b.css", Stage: buildpipeline.StageScan, Status: buildpipeline.StatusError, Err: errors.New("boom")},
	)
	assert.InDelta(t, 1.0, m.percent(), 1e-9)

	finished, failed := m.counts()
	assert.Equal(t, 2, finished)
	assert.Equal(t, 1, failed)
}

func TestFinishedFilesIgnoreLateEvents(t *testing.T) {
	m := newModel(t, "build", "a.css")
	feed(m,
		buildpipeline.Event{File: "a.css", Stage: buildpipeline.StageScan, Status: buildpipeline.StatusError, Err: errors.New("unreadable")},
		fileEvent("a.css", buildpipeline.StageEmit, buildpipeline.StatusDone),
	)
	assert.Equal(t, "error", m.files[0].label())
	assert.EqualError(t, m.files[0].err, "unreadable")
}

func TestLabels(t *testing.T) {
	tests := []struct {
		stage  buildpipeline.Stage
		status buildpipeline.Status
		want   string
	}{
		{buildpipeline.StageScan, buildpipeline.StatusQueued, "queued"},
		{buildpipeline.StageScan, buildpipeline.StatusWorking, "scanning"},
		{buildpipeline.StageScan, buildpipeline.StatusDone, "scanning ok"},
		{buildpipeline.StageRewrite, buildpipeline.StatusWorking, "rewriting"},
		{buildpipeline.StageEmit, buildpipeline.StatusDone, "done"},
		{buildpipeline.StageRewrite, buildpipeline.StatusError, "error"},
	}
	for _, tt := range tests {
		f := fileState{stage: tt.stage, status: tt.status}
		assert.Equal(t, tt.want, f.label(), "%s/%s", tt.stage, tt.status)
	}
}

func TestViewShowsStageAndFiles(t *testing.T) {
	m := newModel(t, "cssident build", "src/a.module.css")
	feed(m,
		buildpipeline.Event{Stage: buildpipeline.StageAllocate, Status: buildpipeline.StatusWorking},
		fileEvent("src/a.module.css", buildpipeline.StageRewrite, buildpipeline.StatusWorking),
	)
	view := m.View()
	assert.Contains(t, view, "cssident build: allocating")
	assert.Contains(t, view, "0/1 files")
	assert.Contains(t, view, "rewriting")
	assert.Contains(t, view, "src/a.module.css")
}

func TestViewShowsStageError(t *testing.T) {
	m := newModel(t, "cssident build")
	feed(m, buildpipeline.Event{Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError, Err: errors.New("bad map")})
	assert.Contains(t, m.View(), "bad map")
}

func TestViewCapsRowsAndPrefersActiveFiles(t *testing.T) {
	var files []string
	for i := range maxRows + 5 {
		files = append(files, fmt.Sprintf("f%02d.module.css", i))
	}
	m := newModel(t, "build", files...)
	for _, f := range files[:maxRows] {
		feed(m, fileEvent(f, buildpipeline.StageEmit, buildpipeline.StatusDone))
	}
	last := files[len(files)-1]
	feed(m, fileEvent(last, buildpipeline.StageRewrite, buildpipeline.StatusWorking))

	rows, hidden := m.visible()
	require.Len(t, rows, maxRows)
	assert.Equal(t, len(files)-maxRows, hidden)
	assert.Equal(t, last, rows[0].path)
	// the four queued files come next, finished ones fill the rest
	assert.Equal(t, files[maxRows], rows[1].path)
	assert.True(t, rows[maxRows-1].finished())
	assert.Contains(t, m.View(), fmt.Sprintf("... %d more", hidden))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate(strings.Repeat("abcdefghij", 3), 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
}
