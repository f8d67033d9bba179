package router

import (
	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/interfaces/http/handler"
)

// Handlers bundles the API handlers
type Handlers struct {
	Health *handler.HealthHandler
	Filter *handler.FilterHandler
	Form   *handler.FormHandler
	List   *handler.ListHandler
	Import *handler.ImportHandler
	Public *handler.PublicHandler
}

// APIGroups builds the route groups. The session middleware is applied to
// every group that reads or changes per-client state.
func APIGroups(h Handlers, session gin.HandlerFunc) []RouteRegistrar {
	health := NewDomainGroup("health", "/health").
		GET("", h.Health.Health)

	filter := NewDomainGroup("filter", "/filter").Use(session).
		GET("", h.Filter.Get).
		POST("/toggle", h.Filter.Toggle).
		POST("/clear", h.Filter.Clear).
		DELETE("", h.Filter.Reset)

	form := NewDomainGroup("form", "/form").Use(session).
		GET("", h.Form.Get).
		POST("/select", h.Form.Select).
		PATCH("/fields", h.Form.UpdateField).
		POST("/revert", h.Form.Revert).
		POST("/save", h.Form.Save).
		POST("/clear", h.Form.Clear).
		DELETE("", h.Form.Delete)

	lists := NewDomainGroup("lists", "/lists").Use(session).
		GET("/:type", h.List.List)

	imports := NewDomainGroup("imports", "/imports").
		POST("/results", h.Import.ImportResults)

	public := NewDomainGroup("public", "/public").
		GET("/results/:athleteID", h.Public.AthleteResults)

	return []RouteRegistrar{health, filter, form, lists, imports, public}
}
