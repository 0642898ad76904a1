package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SyncLog levels.
const (
	SyncLogLevelInfo    = "info"
	SyncLogLevelWarning = "warning"
	SyncLogLevelError   = "error"
)

// LogContext stores free-form diagnostic JSON on a log entry.
type LogContext json.RawMessage

// Value implements driver.Valuer.
func (c LogContext) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return string(c), nil
}

// Scan implements sql.Scanner.
func (c *LogContext) Scan(value interface{}) error {
	if value == nil {
		*c = LogContext("{}")
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*c = LogContext(bytes)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c LogContext) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte("null"), nil
	}
	return c, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *LogContext) UnmarshalJSON(data []byte) error {
	*c = LogContext(data)
	return nil
}

// SyncLog is one ordered diagnostic entry under a job. Append-only.
type SyncLog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	SyncJobID uint       `gorm:"index;not null" json:"sync_job_id"`
	SyncJob   SyncJob    `gorm:"foreignKey:SyncJobID" json:"-"`
	Level     string     `gorm:"type:varchar(10);not null;default:'info';index" json:"level"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Context   LogContext `gorm:"type:json" json:"context,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
