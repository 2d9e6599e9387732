package service

import (
	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
)

// authorizeView decides who may read an application and its history
func authorizeView(actor workflow.Actor, app *model.Application) error {
	switch {
	case actor.IsSystem():
		return nil
	case actor.Role == model.RolePropertyOwner:
		if actor.ID == app.OwnerID {
			return nil
		}
	case actor.Role.DistrictScoped():
		if workflow.DistrictMatches(actor.District, app.District) {
			return nil
		}
	case actor.Role == model.RoleStateOfficer || actor.Role == model.RoleAdmin:
		return nil
	}
	return ErrForbidden
}
