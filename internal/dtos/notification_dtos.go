package dtos

type NotificationKeysRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,max=200,dive,required,max=100"`
}

type NotificationCountResponse struct {
	Updated int `json:"updated"`
}

// SnoozeRequest clears the snooze when Until is omitted.
type SnoozeRequest struct {
	Until *string `json:"until,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
