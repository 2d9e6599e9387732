package workflow

import "github.com/ikkim/homestay-backend/internal/app/model"

// Actor is the resolved identity behind a request
type Actor struct {
	ID       uint
	Role     model.Role
	District string
}

// SystemActor is used for gateway callbacks and scheduled jobs
func SystemActor() Actor {
	return Actor{Role: model.RoleSystem}
}

func (a Actor) IsSystem() bool {
	return a.Role == model.RoleSystem
}

// AuditID returns nil for the system actor so audit rows carry no fake user id
func (a Actor) AuditID() *uint {
	if a.IsSystem() || a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}
