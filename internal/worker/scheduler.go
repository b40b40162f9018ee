// Package worker runs the scheduled background syncs
package worker

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/model"
)

// SyncRunner is the part of the sync engine the scheduler drives
type SyncRunner interface {
	SyncAllHosts(ctx context.Context) []model.HostSyncResult
	SyncAllClusters(ctx context.Context) []model.ClusterSyncResult
}

// Scheduler triggers full inventory syncs on a cron schedule. Host and
// cluster syncs of one run execute concurrently through the pool.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	pool    *Pool
	engine  SyncRunner
	running bool
}

// NewScheduler creates a scheduler for the given engine
func NewScheduler(engine SyncRunner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		pool:   NewPool(2),
		engine: engine,
	}
}

// Schedule registers the sync job under the given cron expression
func (s *Scheduler) Schedule(spec string) error {
	_, err := s.cron.AddFunc(spec, s.runSync)
	if err != nil {
		return err
	}
	log.Info("Sync schedule registered", "schedule", spec)
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	s.pool.Start()
	s.cron.Start()
	log.Info("Background sync scheduler started")
}

// Stop stops the scheduler and waits for a running sync to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.pool.Stop()
	log.Info("Background sync scheduler stopped")
}

// RunNow triggers one full sync outside the schedule
func (s *Scheduler) RunNow() {
	s.runSync()
}

func (s *Scheduler) runSync() {
	log.Info("Scheduled sync starting")

	hostDone := make(chan error, 1)
	clusterDone := make(chan error, 1)

	err := s.pool.Submit(Job{
		Name: "host-sync",
		Handler: func(ctx context.Context) error {
			s.engine.SyncAllHosts(ctx)
			return nil
		},
		Result: hostDone,
	})
	if err != nil {
		log.Error("Failed to queue host sync", "error", err)
		return
	}

	err = s.pool.Submit(Job{
		Name: "cluster-sync",
		Handler: func(ctx context.Context) error {
			s.engine.SyncAllClusters(ctx)
			return nil
		},
		Result: clusterDone,
	})
	if err != nil {
		log.Error("Failed to queue cluster sync", "error", err)
		return
	}

	<-hostDone
	<-clusterDone
	log.Info("Scheduled sync finished")
}
