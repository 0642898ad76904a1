package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/scheduler"
)

// HandleCalendarWebhook receives push notifications from webhook-capable
// calendar providers. The provider only cares that we acknowledge, so the
// handler answers 200 for everything it can attribute or safely ignore;
// the actual work happens in the sync worker the notification triggers.
func HandleCalendarWebhook(c *fiber.Ctx) error {
	channelID := strings.TrimSpace(c.Get("X-Goog-Channel-ID"))
	channelToken := strings.TrimSpace(c.Get("X-Goog-Channel-Token"))
	resourceID := strings.TrimSpace(c.Get("X-Goog-Resource-ID"))
	resourceState := strings.TrimSpace(c.Get("X-Goog-Resource-State"))

	if channelID == "" || resourceID == "" {
		// Malformed notification. Acknowledged anyway: a non-2xx answer only
		// makes the provider retry the same broken call.
		log.Warnf("[Webhook] Notification without channel headers from %s, ignoring", c.IP())
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	// The provider sends a sync ping right after subscribing to verify the
	// endpoint. Nothing changed yet.
	if resourceState == "sync" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}

	mapping, err := repository.GetGlobalFactory().GetMappingRepository().
		GetBySubscription(channelID, channelToken, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Stale or foreign subscription. Acknowledge so the provider
			// stops retrying, but do not sync anything.
			log.Warnf("[Webhook] Notification for unknown subscription %s, ignoring", channelID)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
		}
		// Lookup failures are ours to sort out; the next poll sweep covers
		// the missed change either way.
		log.Errorf("[Webhook] Subscription lookup for %s failed: %v", channelID, err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	_, err = syncScheduler.Trigger(scheduler.TriggerRequest{
		HotelID:   mapping.HotelID,
		Provider:  mapping.Provider,
		MappingID: mapping.ID,
		Type:      models.SyncJobTypeImport,
		Actor:     "webhook",
	})
	switch {
	case errors.Is(err, scheduler.ErrCoalesced):
		// A sync is already picking the change up.
	case err != nil:
		log.Errorf("[Webhook] Failed to trigger sync for mapping %d: %v", mapping.ID, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
