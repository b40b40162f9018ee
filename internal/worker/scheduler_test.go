package worker

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/druroland/myriad/internal/model"
)

type countingRunner struct {
	hosts    atomic.Int32
	clusters atomic.Int32
}

func (r *countingRunner) SyncAllHosts(ctx context.Context) []model.HostSyncResult {
	r.hosts.Add(1)
	return nil
}

func (r *countingRunner) SyncAllClusters(ctx context.Context) []model.ClusterSyncResult {
	r.clusters.Add(1)
	return nil
}

func TestRunNowExecutesBothSyncs(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner)
	s.Start()
	defer s.Stop()

	s.RunNow()

	if got := runner.hosts.Load(); got != 1 {
		t.Errorf("host syncs = %d, want 1", got)
	}
	if got := runner.clusters.Load(); got != 1 {
		t.Errorf("cluster syncs = %d, want 1", got)
	}
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s := NewScheduler(&countingRunner{})
	if err := s.Schedule("not a cron spec"); err == nil {
		t.Error("Schedule should reject an invalid expression")
	}
	if err := s.Schedule("*/15 * * * *"); err != nil {
		t.Errorf("Schedule rejected a valid expression: %v", err)
	}
}
