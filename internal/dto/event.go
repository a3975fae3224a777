package dto

// EventForm is the multipart payload for creating or updating an event.
// Pointer fields distinguish "not sent" from "cleared" on update.
type EventForm struct {
	Title             *string `form:"title" validate:"omitempty,min=1,max=200"`
	Description       *string `form:"description" validate:"omitempty,max=5000"`
	Date              *string `form:"date"`
	Location          *string `form:"location" validate:"omitempty,max=200"`
	RegistrationStart *string `form:"registration_start"`
	RegistrationEnd   *string `form:"registration_end"`
}

// AnnouncementForm is the multipart payload for announcements.
type AnnouncementForm struct {
	Title       *string `form:"title" validate:"omitempty,min=1,max=200"`
	Description *string `form:"description" validate:"omitempty,max=5000"`
	Date        *string `form:"date"`
	Location    *string `form:"location" validate:"omitempty,max=200"`
}

// ParticipationResponse reports the outcome of a join or leave request.
type ParticipationResponse struct {
	Message          string `json:"message"`
	EventID          int64  `json:"event_id"`
	IsParticipant    bool   `json:"is_participant"`
	ParticipantCount int    `json:"participant_count"`
}
