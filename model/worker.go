package model

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

const (
	AvailabilityActive   = "active"
	AvailabilityInactive = "inactive"
)

type Worker struct {
	WorkerID           string         `gorm:"primaryKey;size:64" json:"workerId"`
	Name               string         `gorm:"size:255" json:"name"`
	AvailabilityStatus string         `gorm:"size:32;index" json:"availabilityStatus"`
	Role               string         `gorm:"size:64" json:"role,omitempty"`
	Email              *string        `gorm:"size:255" json:"email,omitempty"`
	Attributes         datatypes.JSON `json:"attributes,omitempty"`
}

func (Worker) TableName() string {
	return "workers"
}

func (w *Worker) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(w.AvailabilityStatus), AvailabilityActive)
}

func (w *Worker) DisplayName() string {
	return strings.TrimSpace(w.Name)
}

func (w *Worker) SetAttributes(attrs map[string]any) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	w.Attributes = datatypes.JSON(data)
	return nil
}
