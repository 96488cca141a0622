// Package models holds the record types persisted by the key-value layer.
// Field names mirror the stored JSON documents; unknown fields are rejected
// at the API boundary, not here.
package models

import "github.com/mechflow/mechflow-backend/pkg/enums"

// User is a directory record keyed by email. ShareKey is the customer-only
// alternate login credential.
type User struct {
	Email        string     `json:"email"`
	PasswordHash string     `json:"password"`
	Role         enums.Role `json:"role"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	ShareKey     string     `json:"shareKey,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	Gender       string     `json:"gender,omitempty"`
}
