package renameplan_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"showrenamer/internal/config"
	"showrenamer/internal/library"
	"showrenamer/internal/logging"
	"showrenamer/internal/matching"
	"showrenamer/internal/renameplan"
	"showrenamer/internal/services"
	"showrenamer/internal/testsupport"
)

func wireResult() *matching.Result {
	return &matching.Result{
		SeriesID:     79126,
		SeriesName:   "The Wire",
		Season:       1,
		Episodes:     []int{2},
		EpisodeTitle: "The Detail",
		Confidence:   1.0,
	}
}

func newExecutor(t *testing.T, opts ...testsupport.ConfigOption) (*renameplan.Executor, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return renameplan.New(cfg, library.New(cfg), logging.NewNop()), cfg
}

func TestBuildIsDeterministic(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e02.mkv")

	first, err := executor.Build(source, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := executor.Build(source, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if first != second {
		t.Errorf("plans differ: %+v vs %+v", first, second)
	}

	want := filepath.Join(cfg.Paths.ShowsDirs[0], "The Wire", "Season 01",
		"The Wire - S01E02 - The Detail.mkv")
	if first.Destination != want {
		t.Errorf("destination = %q, want %q", first.Destination, want)
	}
}

func TestBuildRenameOnlyStaysInDirectory(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e02.mkv")

	plan, err := executor.Build(source, wireResult(), config.ModeRenameOnly)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if filepath.Dir(plan.Destination) != filepath.Dir(source) {
		t.Errorf("rename_only moved directories: %q", plan.Destination)
	}
	if filepath.Base(plan.Destination) != "The Wire - S01E02 - The Detail.mkv" {
		t.Errorf("destination name = %q", filepath.Base(plan.Destination))
	}
}

func TestBuildMultiEpisodeName(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e01e02.mkv")

	result := wireResult()
	result.Episodes = []int{1, 2}
	result.EpisodeTitle = "The Target"

	plan, err := executor.Build(source, result, config.ModeRenameOnly)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if filepath.Base(plan.Destination) != "The Wire - S01E01-E02 - The Target.mkv" {
		t.Errorf("destination name = %q", filepath.Base(plan.Destination))
	}
}

func TestApplyMovesFile(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e02.mkv")
	testsupport.WriteFile(t, source, []byte("episode bytes"))

	plan, err := executor.Build(source, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := executor.Apply(plan, config.ModeRenameAndMove); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Error("source still present after move")
	}
	moved, err := os.ReadFile(plan.Destination)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(moved) != "episode bytes" {
		t.Error("destination content differs from source")
	}
}

func TestApplyDryRunTouchesNothing(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e02.mkv")
	testsupport.WriteFile(t, source, []byte("episode bytes"))

	plan, err := executor.Build(source, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := executor.Apply(plan, config.ModeDryRun); err != nil {
		t.Fatalf("dry-run apply: %v", err)
	}

	if _, err := os.Stat(source); err != nil {
		t.Error("dry run moved the source")
	}
	if _, err := os.Stat(plan.Destination); !os.IsNotExist(err) {
		t.Error("dry run created the destination")
	}
}

func TestApplyIdempotentWhenAlreadyAtDestination(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e02.mkv")
	testsupport.WriteFile(t, source, []byte("episode bytes"))

	plan, err := executor.Build(source, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := executor.Apply(plan, config.ModeRenameAndMove); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// The moved file parses and matches to the same plan; source now equals
	// destination and the replay must succeed without changes.
	replay, err := executor.Build(plan.Destination, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !replay.NoOp() {
		t.Fatalf("replayed plan is not a no-op: %+v", replay)
	}
	if err := executor.Apply(replay, config.ModeRenameAndMove); err != nil {
		t.Fatalf("replay apply: %v", err)
	}
	if _, err := os.Stat(plan.Destination); err != nil {
		t.Error("destination missing after replay")
	}
}

func TestApplyCollisionLeavesSource(t *testing.T) {
	executor, cfg := newExecutor(t)
	source := filepath.Join(cfg.Paths.WatchDirs[0], "the.wire.s01e02.mkv")
	testsupport.WriteFile(t, source, []byte("new copy"))

	plan, err := executor.Build(source, wireResult(), config.ModeRenameAndMove)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	testsupport.WriteFile(t, plan.Destination, []byte("existing file"))

	err = executor.Apply(plan, config.ModeRenameAndMove)
	if !errors.Is(err, services.ErrCollision) {
		t.Fatalf("err = %v, want ErrCollision", err)
	}
	if services.Retryable(err) {
		t.Error("collision classified as retryable")
	}

	if _, statErr := os.Stat(source); statErr != nil {
		t.Error("source removed despite collision")
	}
	existing, readErr := os.ReadFile(plan.Destination)
	if readErr != nil || string(existing) != "existing file" {
		t.Error("collision overwrote the destination")
	}
}

func TestFileNameSanitizesTitle(t *testing.T) {
	result := wireResult()
	result.SeriesName = "What/If?"
	result.EpisodeTitle = "Part: One"

	name := renameplan.FileName(result, ".MKV")
	if name != "What-If - S01E02 - Part - One.mkv" {
		t.Errorf("name = %q", name)
	}
}
