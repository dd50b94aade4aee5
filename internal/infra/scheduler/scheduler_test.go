package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeLockRepo struct {
	held     bool
	acquires int
	releases int
}

func (r *fakeLockRepo) Acquire(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	r.acquires++
	if r.held {
		return false, nil
	}
	r.held = true
	return true, nil
}

func (r *fakeLockRepo) Release(ctx context.Context, name, token string) error {
	r.releases++
	r.held = false
	return nil
}

type fakeRunner struct {
	runs int
}

func (r *fakeRunner) RunAll(ctx context.Context) (int, error) {
	r.runs++
	return 3, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestExecuteScanAcquiresAndReleasesLease(t *testing.T) {
	locks := &fakeLockRepo{}
	runner := &fakeRunner{}
	s := NewAlertScheduler(runner, locks, quietLogger(), "0 6 * * *")

	s.executeScan()

	if runner.runs != 1 {
		t.Errorf("runs = %d, want 1", runner.runs)
	}
	if locks.acquires != 1 || locks.releases != 1 {
		t.Errorf("lease acquires=%d releases=%d, want 1/1", locks.acquires, locks.releases)
	}
}

func TestExecuteScanSkipsWhenLeaseHeld(t *testing.T) {
	locks := &fakeLockRepo{held: true}
	runner := &fakeRunner{}
	s := NewAlertScheduler(runner, locks, quietLogger(), "0 6 * * *")

	s.executeScan()

	if runner.runs != 0 {
		t.Errorf("scan ran while another instance held the lease (runs = %d)", runner.runs)
	}
	if locks.releases != 0 {
		t.Errorf("released a lease it never acquired (releases = %d)", locks.releases)
	}
}
