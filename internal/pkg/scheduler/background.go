package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	"github.com/hotelhub/channelsync/internal/pkg/env"
)

// pollWorker periodically sweeps every active mapping and triggers the
// syncs its direction calls for. The debounce markers make the sweep
// cheap when webhooks already keep a mapping fresh.
func (s *Scheduler) pollWorker() {
	defer s.wg.Done()
	log.Info("[Scheduler] Poll sweeper started")

	for {
		select {
		case <-s.stopCh:
			log.Info("[Scheduler] Poll sweeper stopping")
			return
		case <-s.pollTicker.C:
			s.pollSweep()
		}
	}
}

func (s *Scheduler) pollSweep() {
	mappings, err := repository.NewRepositories(s.db).Mapping.AllActive()
	if err != nil {
		log.Errorf("[Scheduler] Poll sweep failed to load mappings: %v", err)
		return
	}

	type key struct {
		hotelID  uint
		provider models.Provider
		jobType  models.SyncJobType
	}
	wanted := make(map[key]struct{})
	for i := range mappings {
		m := &mappings[i]
		if m.Direction.Imports() {
			wanted[key{m.HotelID, m.Provider, models.SyncJobTypeImport}] = struct{}{}
		}
		if m.Direction.Exports() {
			wanted[key{m.HotelID, m.Provider, models.SyncJobTypeExport}] = struct{}{}
		}
	}

	triggered := 0
	for k := range wanted {
		_, err := s.Trigger(TriggerRequest{
			HotelID:  k.hotelID,
			Provider: k.provider,
			Type:     k.jobType,
			Actor:    "scheduler",
		})
		switch {
		case err == nil:
			triggered++
		case errors.Is(err, ErrCoalesced):
			// Already in flight, the marker did its job.
		default:
			log.Warnf("[Scheduler] Poll trigger for hotel %d (%s %s) failed: %v",
				k.hotelID, k.provider, k.jobType, err)
		}
	}
	if triggered > 0 {
		log.Infof("[Scheduler] Poll sweep triggered %d sync runs", triggered)
	}
}

// renewWorker keeps webhook subscriptions alive for providers that push
// change notifications instead of being polled.
func (s *Scheduler) renewWorker() {
	defer s.wg.Done()
	log.Info("[Scheduler] Subscription renewer started")

	for {
		select {
		case <-s.stopCh:
			log.Info("[Scheduler] Subscription renewer stopping")
			return
		case <-s.renewTicker.C:
			s.renewExpiring()
		}
	}
}

func (s *Scheduler) renewExpiring() {
	repos := repository.NewRepositories(s.db)
	horizon := env.GetEnvDuration("SUBSCRIPTION_RENEW_HORIZON", time.Hour)

	mappings, err := repos.Mapping.ExpiringSubscriptions(horizon)
	if err != nil {
		log.Errorf("[Scheduler] Failed to load expiring subscriptions: %v", err)
		return
	}

	ctx := context.Background()
	for i := range mappings {
		mapping := &mappings[i]
		subscriber, ok := s.registry.Get(mapping.Provider).(channels.Subscriber)
		if !ok {
			continue
		}

		sub, err := subscriber.RenewSubscription(ctx, mapping)
		if err != nil {
			log.Errorf("[Scheduler] Failed to renew subscription for mapping %d: %v", mapping.ID, err)
			continue
		}

		mapping.SubscriptionID = sub.ID
		mapping.SubscriptionToken = sub.Token
		mapping.WebhookResourceID = sub.ResourceID
		expiry := sub.Expiry
		mapping.SubscriptionExpiry = &expiry
		if err := repos.Mapping.Save(mapping); err != nil {
			log.Errorf("[Scheduler] Failed to store renewed subscription for mapping %d: %v", mapping.ID, err)
			continue
		}
		log.Infof("[Scheduler] Renewed subscription %s for mapping %d (expires %s)",
			sub.ID, mapping.ID, sub.Expiry.Format(time.RFC3339))
	}
}
