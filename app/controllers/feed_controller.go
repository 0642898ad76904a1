package controllers

import (
	"crypto/subtle"
	"errors"
	"fmt"

	ics "github.com/arran4/golang-ical"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
)

// HandleHotelCalendarFeed serves a hotel's occupancy as a read-only iCal
// feed. Channels that poll feeds (Airbnb-style) consume this endpoint.
// Access is guarded by the hotel's feed token; a wrong token answers 404
// so the feed's existence is not confirmed to guessers.
func HandleHotelCalendarFeed(c *fiber.Ctx) error {
	hotelID, err := c.ParamsInt("id")
	if err != nil || hotelID < 1 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	repos := repository.GetGlobalRepositories()
	hotel, err := repos.Hotel.GetByID(uint(hotelID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	token := c.Query("token")
	if hotel.FeedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(hotel.FeedToken)) != 1 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	reservations, err := repos.Reservation.ActiveByHotel(hotel.ID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	rooms, err := repos.Hotel.GetRooms(hotel.ID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	var blocks []models.RoomBlock
	for _, room := range rooms {
		roomBlocks, err := repos.Reservation.ActiveBlocksByRoom(room.ID)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		blocks = append(blocks, roomBlocks...)
	}

	cal := buildHotelCalendar(hotel, reservations, blocks)

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.SendString(cal.Serialize())
}

// HandleRoomCalendarFeed serves a single room's occupancy, for channels
// mapped at room granularity. Gated by the owning hotel's feed token.
func HandleRoomCalendarFeed(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil || roomID < 1 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	repos := repository.GetGlobalRepositories()
	room, err := repos.Hotel.GetRoom(uint(roomID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	hotel, err := repos.Hotel.GetByID(room.HotelID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	token := c.Query("token")
	if hotel.FeedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(hotel.FeedToken)) != 1 {
		return c.SendStatus(fiber.StatusNotFound)
	}

	reservations, err := repos.Reservation.ActiveByRoom(room.ID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	blocks, err := repos.Reservation.ActiveBlocksByRoom(room.ID)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	cal := buildHotelCalendar(hotel, reservations, blocks)

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.SendString(cal.Serialize())
}

// buildHotelCalendar renders reservations and blocks as all-day busy
// events. Guest names stay internal: the feed only says a room is taken.
func buildHotelCalendar(hotel *models.Hotel, reservations []models.Reservation, blocks []models.RoomBlock) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//hotelhub//channelsync//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s occupancy", hotel.Name))

	for i := range reservations {
		res := &reservations[i]
		ev := cal.AddEvent(fmt.Sprintf("%sres-%d", channels.OriginMarker, res.ID))
		ev.SetAllDayStartAt(res.CheckIn)
		ev.SetAllDayEndAt(res.CheckOut)
		ev.SetSummary(fmt.Sprintf("Reserved (room %d)", res.RoomID))
		ev.SetDescription(fmt.Sprintf("%sres-%d", channels.OriginMarker, res.ID))
		if res.Status == models.ReservationStatusPending {
			ev.SetStatus(ics.ObjectStatusTentative)
		} else {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	for i := range blocks {
		block := &blocks[i]
		ev := cal.AddEvent(fmt.Sprintf("%sblock-%d", channels.OriginMarker, block.ID))
		ev.SetAllDayStartAt(block.StartDate)
		ev.SetAllDayEndAt(block.EndDate)
		ev.SetSummary(fmt.Sprintf("Blocked (room %d)", block.RoomID))
		ev.SetDescription(fmt.Sprintf("%sblock-%d", channels.OriginMarker, block.ID))
		ev.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal
}
