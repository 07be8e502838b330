package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"NewsPublisher/internal/domain"
)

type countingRunner struct {
	mu        sync.Mutex
	operators []int64
	err       error
}

func (r *countingRunner) RunScheduled(_ context.Context, operatorID int64) (RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators = append(r.operators, operatorID)
	return RunResult{Status: StatusPublished}, r.err
}

func TestAutoPublisherEnableReplacesJob(t *testing.T) {
	t.Parallel()

	driver := newFakeDriver()
	runner := &countingRunner{}
	auto := NewAutoPublisher(driver, runner, newMemStore(), nil)

	auto.Enable(7, time.Hour)
	auto.Enable(7, 15*time.Minute)

	if got := driver.jobs[JobKey(7)]; got != 15*time.Minute {
		t.Fatalf("expected replaced interval, got %s", got)
	}
	if len(driver.cancelled) != 1 {
		t.Fatalf("previous job should be cancelled once, got %v", driver.cancelled)
	}
	if !auto.Enabled(7) {
		t.Fatalf("job should be registered")
	}

	driver.fire(JobKey(7))
	if len(runner.operators) != 1 || runner.operators[0] != 7 {
		t.Fatalf("job should run the pipeline for its operator: %v", runner.operators)
	}
}

func TestAutoPublisherDisableWithoutJob(t *testing.T) {
	t.Parallel()

	driver := newFakeDriver()
	auto := NewAutoPublisher(driver, &countingRunner{}, newMemStore(), nil)

	auto.Disable(3)
	if auto.Enabled(3) || len(driver.cancelled) != 0 {
		t.Fatalf("disable without a job must be a no-op")
	}

	auto.Enable(3, time.Hour)
	auto.Disable(3)
	if auto.Enabled(3) {
		t.Fatalf("job should be gone")
	}
}

func TestAutoPublisherApply(t *testing.T) {
	t.Parallel()

	driver := newFakeDriver()
	auto := NewAutoPublisher(driver, &countingRunner{err: domain.ErrRunInProgress}, newMemStore(), nil)

	s := domain.DefaultSettings(5)
	s.AutoPublishEnabled = true
	s.IntervalMinutes = 30
	auto.Apply(s)
	if driver.jobs[JobKey(5)] != 30*time.Minute {
		t.Fatalf("apply should schedule at the stored interval")
	}
	driver.fire(JobKey(5))

	s.AutoPublishEnabled = false
	auto.Apply(s)
	if auto.Enabled(5) {
		t.Fatalf("apply should cancel a disabled schedule")
	}
}

func TestAutoPublisherRestore(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	on := domain.DefaultSettings(1)
	on.AutoPublishEnabled = true
	on.IntervalMinutes = 60
	store.settings[1] = on
	store.settings[2] = domain.DefaultSettings(2)

	driver := newFakeDriver()
	auto := NewAutoPublisher(driver, &countingRunner{}, store, nil)

	n, err := auto.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 1 || !auto.Enabled(1) || auto.Enabled(2) {
		t.Fatalf("unexpected restore: n=%d jobs=%v", n, driver.jobs)
	}
	if driver.jobs[JobKey(1)] != time.Hour {
		t.Fatalf("unexpected interval %s", driver.jobs[JobKey(1)])
	}
}
