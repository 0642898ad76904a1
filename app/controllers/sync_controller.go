package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/scheduler"
)

var syncScheduler *scheduler.Scheduler

// InitializeSyncController wires the shared scheduler into the handlers.
func InitializeSyncController(s *scheduler.Scheduler) {
	syncScheduler = s
}

// TriggerSyncRequest is the POST /api/v1/sync/trigger payload.
type TriggerSyncRequest struct {
	HotelID   uint   `json:"hotel_id" validate:"required"`
	Provider  string `json:"provider" validate:"required,oneof=ical caldav ota channel_manager"`
	MappingID uint   `json:"mapping_id"`
	Type      string `json:"type" validate:"required,oneof=import export push_rates pull_reservations"`
}

// Validate checks the payload against its constraints.
func (r *TriggerSyncRequest) Validate() error {
	v := validator.New()
	return v.Struct(r)
}

// HandleTriggerSync requests a sync pass. Duplicate requests inside the
// debounce window are absorbed and answered with coalesced=true.
func HandleTriggerSync(c *fiber.Ctx) error {
	var req TriggerSyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Malformed request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": err.Error()})
	}

	actor := strings.TrimSpace(c.Get("X-Actor"))
	if actor == "" {
		actor = "api"
	}

	job, err := syncScheduler.Trigger(scheduler.TriggerRequest{
		HotelID:   req.HotelID,
		Provider:  models.Provider(req.Provider),
		MappingID: req.MappingID,
		Type:      models.SyncJobType(req.Type),
		Actor:     actor,
	})
	switch {
	case errors.Is(err, scheduler.ErrCoalesced):
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"coalesced": true})
	case errors.Is(err, scheduler.ErrNotRunning):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "Sync workers are not running"})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to trigger sync"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"coalesced": false,
		"job": fiber.Map{
			"uuid":     job.UUID,
			"hotel_id": job.HotelID,
			"provider": job.Provider,
			"type":     job.Type,
			"state":    job.State,
		},
	})
}

// HandleListSyncJobs lists the job ledger, newest first, with optional
// hotel_id/provider/state filters and page/limit pagination.
func HandleListSyncJobs(c *fiber.Ctx) error {
	filter := repository.JobFilter{
		HotelID:  uint(c.QueryInt("hotel_id", 0)),
		Provider: models.Provider(c.Query("provider")),
		State:    models.SyncJobState(c.Query("state")),
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	jobs, total, err := repository.GetGlobalFactory().GetSyncJobRepository().ListJobs(filter, (page-1)*limit, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list jobs"})
	}

	return c.JSON(fiber.Map{
		"jobs":  jobs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// HandleGetSyncJob returns one job by its public UUID.
func HandleGetSyncJob(c *fiber.Ctx) error {
	job, err := repository.GetGlobalFactory().GetSyncJobRepository().GetJobByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load job"})
	}
	return c.JSON(job)
}

// HandleGetSyncJobLogs returns the log entries of one job in append order.
func HandleGetSyncJobLogs(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetSyncJobRepository()
	job, err := repo.GetJobByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load job"})
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 200)
	if limit < 1 || limit > 1000 {
		limit = 200
	}

	logs, total, err := repo.ListLogs(job.ID, c.Query("level"), (page-1)*limit, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load logs"})
	}

	return c.JSON(fiber.Map{
		"job_uuid": job.UUID,
		"logs":     logs,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// HandleListStaleSyncJobs surfaces jobs stuck in RUNNING, for operators
// investigating a crashed worker. Listing never mutates the jobs.
func HandleListStaleSyncJobs(c *fiber.Ctx) error {
	olderThan := 30 * time.Minute
	if raw := c.Query("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "older_than must be a positive duration"})
		}
		olderThan = parsed
	}

	jobs, err := repository.GetGlobalFactory().GetSyncJobRepository().StaleRunning(olderThan)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to list stale jobs"})
	}
	return c.JSON(fiber.Map{"jobs": jobs, "older_than": olderThan.String()})
}
