package services

import (
	models "github.com/phillip/charity-campaigns-go/models"
)

// CanModify reports whether actor may update or delete c: the owner and any
// admin may, nobody else may. A nil actor is unauthenticated.
func CanModify(actor *models.Actor, c *models.Campaign) bool {
	if actor == nil || c == nil {
		return false
	}
	if actor.Role == models.RoleAdmin {
		return true
	}
	return !actor.ID.IsZero() && actor.ID == c.CreatedBy
}
