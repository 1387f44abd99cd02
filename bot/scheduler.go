package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"modbot/model"
	"modbot/moderation"
	"modbot/tasks"

	"github.com/bwmarrin/discordgo"
)

// BotProvider defines the methods the scheduler needs from the Bot.
type BotProvider interface {
	GetConfig() *model.Config
	GetSession() *discordgo.Session
	GetEngine() *moderation.Engine
	GetViews() *moderation.ViewTracker
}

// Scheduler manages all scheduled tasks.
type Scheduler struct {
	bot                 BotProvider
	done                chan struct{}
	wg                  sync.WaitGroup
	stopOnce            sync.Once
	viewPruneInterval   time.Duration
	pendingDigestPeriod time.Duration
}

// NewScheduler creates a new scheduler.
func NewScheduler(bot BotProvider) *Scheduler {
	return &Scheduler{
		bot:                 bot,
		done:                make(chan struct{}),
		viewPruneInterval:   time.Hour,
		pendingDigestPeriod: 12 * time.Hour,
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.startScheduledTasks()
}

// Stop terminates all scheduled tasks gracefully.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Println("Stopping scheduler...")
		close(s.done)
		s.wg.Wait()
		log.Println("Scheduler stopped.")
	})
}

func (s *Scheduler) startScheduledTasks() {
	defer s.wg.Done()
	viewPruneTicker := time.NewTicker(s.viewPruneInterval)
	pendingDigestTicker := time.NewTicker(s.pendingDigestPeriod)

	defer viewPruneTicker.Stop()
	defer pendingDigestTicker.Stop()

	for {
		select {
		case <-viewPruneTicker.C:
			s.pruneViews()
		case <-pendingDigestTicker.C:
			log.Println("Posting pending point ban digest...")
			s.postPendingDigest()
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) pruneViews() {
	views := s.bot.GetViews()
	if views == nil {
		return
	}
	if removed := views.Prune(); removed > 0 {
		log.Printf("Pruned %d expired approval views", removed)
	}
}

func (s *Scheduler) postPendingDigest() {
	engine := s.bot.GetEngine()
	if engine == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	tasks.PostPendingDigests(ctx, s.bot.GetSession(), s.bot.GetConfig(), engine)
}
