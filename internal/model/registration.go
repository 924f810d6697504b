package model

import "time"

type RegistrationStatus string

const RegistrationStatusRegistered RegistrationStatus = "registered"

type Registration struct {
	ID           string             `json:"id"`
	UserID       string             `json:"userId"`
	WebinarID    string             `json:"webinarId"`
	Status       RegistrationStatus `json:"status"`
	RegisteredAt time.Time          `json:"registeredAt"`
}
