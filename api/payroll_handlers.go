package api

import (
	"net/http"
)

// GeneratePayrollBatch creates payslips for one month.
// POST /api/payroll/batches {month, year}
func (h *Handler) GeneratePayrollBatch(w http.ResponseWriter, r *http.Request) {
	var body PayrollBatchRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	result, err := h.Payroll.GenerateAs(r.Context(), mustActor(r), body.Month, body.Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListPayslips returns an employee's payslips, newest first.
// GET /api/employees/{id}/payslips
func (h *Handler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Payroll.Payslips(r.Context(), mustActor(r), employeeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dtos := make([]PayslipDTO, len(slips))
	for i, p := range slips {
		dtos[i] = toPayslipDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}
