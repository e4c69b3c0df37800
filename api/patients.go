package api

import (
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/records"
	"github.com/gin-gonic/gin"
)

func (h *handler) listPatients(c *gin.Context) {
	f := model.PatientFilter{
		Status:    model.PatientStatus(c.Query("status")),
		RiskLevel: model.RiskLevel(c.Query("riskLevel")),
		Page:      parseQueryInt(c, "page", 1),
		Limit:     parseQueryInt(c, "limit", 10),
	}
	page, err := h.records.ListPatients(c.Request.Context(), caller(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", page)
}

func (h *handler) myChart(c *gin.Context) {
	p, err := h.records.MyChart(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", p)
}

func (h *handler) getPatient(c *gin.Context) {
	p, err := h.records.GetPatient(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", p)
}

func (h *handler) updatePatient(c *gin.Context) {
	var req patientUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.records.UpdatePatient(c.Request.Context(), caller(c), c.Param("id"), req.update())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "patient updated", p)
}

func (h *handler) assignDoctor(c *gin.Context) {
	var req assignRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.records.AssignDoctor(c.Request.Context(), caller(c), c.Param("id"), records.AssignInput{
		DoctorID:       req.DoctorID,
		IsPrimary:      req.IsPrimary,
		Specialization: req.Specialization,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "doctor assigned", p)
}

func (h *handler) unassignDoctor(c *gin.Context) {
	p, err := h.records.UnassignDoctor(c.Request.Context(), caller(c), c.Param("id"), c.Param("doctorId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "doctor removed", p)
}

func (h *handler) addMedication(c *gin.Context) {
	var req medicationRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.records.AddMedication(c.Request.Context(), caller(c), c.Param("id"), req.medication())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondCreated(c, "medication added", p)
}

func (h *handler) addVitals(c *gin.Context) {
	var req vitalsRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.records.AddVitals(c.Request.Context(), caller(c), c.Param("id"), req.vitals())
	if err != nil {
		h.fail(c, err)
		return
	}
	respondCreated(c, "vitals recorded", p)
}

func (h *handler) patientHistory(c *gin.Context) {
	history, err := h.records.PatientHistory(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, "", history)
}
