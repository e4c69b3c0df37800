package api

import (
	"github.com/MrEthical07/medvault/records"
	"github.com/gin-gonic/gin"
)

func (h *handler) listRecords(c *gin.Context) {
	h.searchRecords(c, "")
}

func (h *handler) searchRecords(c *gin.Context, query string) {
	page, err := h.records.ListRecords(c.Request.Context(), caller(c), query, parseQueryInt(c, "page", 1), parseQueryInt(c, "limit", 10))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", page)
}

func (h *handler) search(c *gin.Context) {
	h.searchRecords(c, c.Query("q"))
}

func (h *handler) patientRecords(c *gin.Context) {
	page, err := h.records.PatientRecords(c.Request.Context(), caller(c), c.Param("patientId"), parseQueryInt(c, "page", 1), parseQueryInt(c, "limit", 10))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", page)
}

func (h *handler) createRecord(c *gin.Context) {
	var req recordRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.records.CreateRecord(c.Request.Context(), caller(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondCreated(c, "record created", r)
}

func (h *handler) getRecord(c *gin.Context) {
	r, err := h.records.GetRecord(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", r)
}

func (h *handler) updateRecord(c *gin.Context) {
	var req recordUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.records.UpdateRecord(c.Request.Context(), caller(c), c.Param("id"), req.update())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "record updated", r)
}

func (h *handler) deleteRecord(c *gin.Context) {
	if err := h.records.DeleteRecord(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "record deleted", nil)
}

func (h *handler) shareRecord(c *gin.Context) {
	var req shareRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.records.ShareRecord(c.Request.Context(), caller(c), c.Param("id"), records.ShareInput{
		UserID:      req.UserID,
		Permissions: req.Permissions,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "record shared", r)
}

func (h *handler) addAttachment(c *gin.Context) {
	var req attachmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.records.AddAttachment(c.Request.Context(), caller(c), c.Param("id"), records.AttachmentInput{
		FileName: req.FileName,
		FilePath: req.FilePath,
		FileType: req.FileType,
		Size:     req.Size,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respondCreated(c, "attachment added", a)
}

func (h *handler) getAttachment(c *gin.Context) {
	a, err := h.records.GetAttachment(c.Request.Context(), caller(c), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", a)
}

func (h *handler) removeAttachment(c *gin.Context) {
	if err := h.records.RemoveAttachment(c.Request.Context(), caller(c), c.Param("id"), c.Param("attachmentId")); err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "attachment removed", nil)
}
