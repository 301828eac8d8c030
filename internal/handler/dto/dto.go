// Package dto provides the JSON request and response bodies of the API.
package dto

import (
	"github.com/fieldmgr/fieldmgr/internal/model"
)

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Email string `json:"email"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// NameRequest is the body for creating or renaming a field or device.
type NameRequest struct {
	Name string `json:"name"`
}

// ResourceResponse represents a field or device in API responses.
type ResourceResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToUserResponse converts a model.User to a UserResponse.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email}
}

// ToResourceResponse converts a field or device to a ResourceResponse.
func ToResourceResponse[T model.Resource](item T) ResourceResponse {
	rec := model.Record(item)
	return ResourceResponse{ID: rec.ID, Name: rec.Name}
}

// ToResourceList converts items, returning an empty slice rather than nil.
func ToResourceList[T model.Resource](items []T) []ResourceResponse {
	out := make([]ResourceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ToResourceResponse(item))
	}
	return out
}
