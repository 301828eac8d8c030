// Package model defines domain entities for the application.
package model

import "time"

// User is an identity that owns fields and devices.
// Email is always stored in normalized form.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
