package dto

type JoinWaitlistRequest struct {
	Email string `json:"email"`
}

type JoinWaitlistResponse struct {
	Success bool `json:"success"`
}
