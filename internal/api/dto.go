package api

import (
	"github.com/starford/meetbook/internal/meetingservice"
	"github.com/starford/meetbook/internal/models"
)

// CreateMeetingRequest is the request body for creating a meeting.
type CreateMeetingRequest = meetingservice.CreateInput

// MeetingView is the meeting response type (aliased from the domain layer).
type MeetingView = models.MeetingView

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message" example:"Meeting deleted successfully" validate:"required"`
}

// DeleteManyResponse reports how many meetings a bulk delete changed.
type DeleteManyResponse struct {
	Message      string `json:"message" example:"Meetings deleted successfully" validate:"required"`
	DeletedCount int64  `json:"deletedCount" example:"3" validate:"required"`
}
