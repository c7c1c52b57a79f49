package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/orgboard/portal-backend/internal/registry/projects"
)

// Scheduler runs the nightly purge of soft-deleted projects.
type Scheduler struct {
	repo      *projects.Repo
	retention time.Duration
}

func NewScheduler(repo *projects.Repo, retention time.Duration) *Scheduler {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &Scheduler{repo: repo, retention: retention}
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	// (3:00 AM)
	_, err := c.AddFunc("0 0 3 * * *", func() {
		s.runPurge()
	})

	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (purging soft-deleted projects nightly at 3:00AM)")
	c.Start()
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	n, err := s.repo.PurgeDeleted(ctx, cutoff)
	if err != nil {
		log.Printf("Purge failed: %v", err)
		return
	}

	log.Printf("Purge completed: %d projects removed at %s", n, time.Now().Format(time.RFC1123))
}
