package api

import (
	"github.com/MrEthical07/medvault/model"
	"github.com/gin-gonic/gin"
)

func (h *handler) listUsers(c *gin.Context) {
	f := model.IdentityFilter{
		Role:  model.Role(c.Query("role")),
		Page:  parseQueryInt(c, "page", 1),
		Limit: parseQueryInt(c, "limit", 10),
	}
	switch c.Query("status") {
	case "active":
		active := true
		f.Active = &active
	case "inactive":
		active := false
		f.Active = &active
	}
	page, err := h.engine.ListIdentities(c.Request.Context(), caller(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", page)
}

func (h *handler) getUser(c *gin.Context) {
	identity, err := h.engine.GetIdentity(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", identity)
}

func (h *handler) updateUser(c *gin.Context) {
	var req userUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := req.update()
	if err != nil {
		h.fail(c, err)
		return
	}
	identity, err := h.engine.UpdateIdentity(c.Request.Context(), caller(c), c.Param("id"), u)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "user updated", identity)
}

func (h *handler) deactivateUser(c *gin.Context) {
	if err := h.engine.DeactivateIdentity(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "user deactivated", nil)
}

func (h *handler) listDoctors(c *gin.Context) {
	page, err := h.engine.ListDoctors(c.Request.Context(), parseQueryInt(c, "page", 1), parseQueryInt(c, "limit", 10))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", page)
}

func (h *handler) listPatientUsers(c *gin.Context) {
	page, err := h.engine.ListPatientIdentities(c.Request.Context(), caller(c), parseQueryInt(c, "page", 1), parseQueryInt(c, "limit", 10))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", page)
}
