package domain

// Session is what the auth collaborator tells us about the caller.
type Session struct {
	Authenticated bool   `json:"authenticated"`
	ActorID       string `json:"actorId"`
	Role          string `json:"role"`
}
