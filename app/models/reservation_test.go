package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func TestReservationBeforeSave(t *testing.T) {
	tests := []struct {
		name        string
		externalUID *string
		channel     string
		wantErr     bool
	}{
		{"direct without uid", nil, ChannelDirect, false},
		{"external with uid", strPtr("abc@ota"), "ota", false},
		{"direct with uid", strPtr("abc@ota"), ChannelDirect, true},
		{"external without uid", nil, "ota", true},
		{"empty channel without uid", nil, "", false},
		{"uid with empty channel", strPtr("abc@ota"), "", true},
		{"direct with empty uid", strPtr(""), ChannelDirect, false},
		{"external with empty uid", strPtr(""), "ota", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &Reservation{
				HotelID:     1,
				RoomID:      1,
				CheckIn:     date(1),
				CheckOut:    date(3),
				ExternalUID: tt.externalUID,
				Channel:     tt.channel,
			}
			err := res.BeforeSave(nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrExternalIDChannel)
			} else {
				assert.NoError(t, err)
			}
			if err == nil && tt.externalUID != nil && *tt.externalUID == "" {
				// Empty uids never reach the unique key.
				assert.Nil(t, res.ExternalUID)
			}
		})
	}
}

func TestReservationHelpers(t *testing.T) {
	res := &Reservation{
		Status:   ReservationStatusConfirmed,
		Channel:  ChannelDirect,
		CheckIn:  date(1),
		CheckOut: date(4),
	}

	assert.Equal(t, 3, res.Nights())
	assert.True(t, res.IsActive())
	assert.False(t, res.IsTerminal())
	assert.False(t, res.IsExternal())

	res.Status = ReservationStatusCancelled
	assert.False(t, res.IsActive())
	assert.True(t, res.IsTerminal())

	res.Status = ReservationStatusNoShow
	assert.True(t, res.IsTerminal())

	res.Channel = "ical"
	assert.True(t, res.IsExternal())
}
