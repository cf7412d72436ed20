package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightsmile-clinic/claims-platform/internal/billing"
	"github.com/brightsmile-clinic/claims-platform/internal/claims"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// ClaimService is the slice of the claims orchestrator the HTTP layer
// drives.
type ClaimService interface {
	CalculateCopayment(basket billing.Basket, providerID insurance.ProviderID) billing.CopaymentResult
	VerifyMember(ctx context.Context, providerID insurance.ProviderID, memberID string, patient insurance.PatientDetails) (*insurance.MemberVerification, error)
	SubmitClaim(ctx context.Context, req claims.SubmitRequest) (*claims.ClaimRecord, error)
	PollAuthorization(ctx context.Context, providerID insurance.ProviderID, encounterID, submissionID string) (*insurance.AuthorizationContext, error)
	ListClaimsByPatient(ctx context.Context, patientID string) ([]claims.ClaimRecord, error)
}

// ClaimsHandler exposes the claim workflow to the clinic front desk UI.
type ClaimsHandler struct {
	service  ClaimService
	registry *insurance.Registry
	logger   *logging.Logger
}

// NewClaimsHandler creates the claims HTTP handler.
func NewClaimsHandler(service ClaimService, registry *insurance.Registry, logger *logging.Logger) *ClaimsHandler {
	return &ClaimsHandler{
		service:  service,
		registry: registry,
		logger:   logger.WithComponent("claims_handler"),
	}
}

type basketItem struct {
	Name     string `json:"name"`
	UnitCost int64  `json:"unit_cost"`
	Quantity int    `json:"quantity"`

	// LineTotal is optional. When present and inconsistent with
	// unit_cost*quantity it wins, and the unit cost is corrected.
	LineTotal int64 `json:"line_total,omitempty"`
}

func (h *ClaimsHandler) basketFromItems(items []basketItem) billing.Basket {
	basket := make(billing.Basket, 0, len(items))
	for _, item := range items {
		unitCost := item.UnitCost
		if item.LineTotal != 0 {
			line := claims.ReconcileLine(claims.ClaimLine{
				UnitPrice: item.UnitCost,
				Quantity:  item.Quantity,
				LineTotal: item.LineTotal,
			})
			if line.CorrectedUnitPrice {
				h.logger.Warn("line total disagreed with unit price; corrected",
					"item", item.Name, "unit_cost", item.UnitCost, "line_total", item.LineTotal)
			}
			unitCost = line.UnitPrice
		}
		basket = append(basket, billing.TreatmentItem{
			Name:      item.Name,
			UnitCost:  unitCost,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return basket
}

type patientPayload struct {
	PatientNumber string `json:"patient_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        string `json:"gender"`
	Phone         string `json:"phone"`
}

func (p patientPayload) toDetails() (insurance.PatientDetails, error) {
	details := insurance.PatientDetails{
		PatientNumber: p.PatientNumber,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Gender:        p.Gender,
		Phone:         p.Phone,
	}
	if p.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", p.DateOfBirth)
		if err != nil {
			return details, errors.New("date_of_birth must be YYYY-MM-DD")
		}
		details.DateOfBirth = dob
	}
	return details, nil
}

type calculateRequest struct {
	ProviderID   string       `json:"provider_id"`
	Items        []basketItem `json:"items"`
	Installments int          `json:"installments,omitempty"`
}

type calculateResponse struct {
	billing.CopaymentResult
	Installments []int64 `json:"installments,omitempty"`
}

// CalculateCopayment handles POST /api/v1/copayment/calculate.
func (h *ClaimsHandler) CalculateCopayment(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ProviderID == "" {
		writeBadRequest(w, "provider_id is required")
		return
	}

	basket := h.basketFromItems(req.Items)
	result := h.service.CalculateCopayment(basket, insurance.ProviderID(req.ProviderID))

	resp := calculateResponse{CopaymentResult: result}
	if req.Installments > 1 {
		plan, err := billing.InstallmentPlan(result.PatientCopayment, req.Installments)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		resp.Installments = plan
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyRequest struct {
	ProviderID string         `json:"provider_id"`
	MemberID   string         `json:"member_id"`
	Patient    patientPayload `json:"patient"`
}

// VerifyMember handles POST /api/v1/members/verify.
func (h *ClaimsHandler) VerifyMember(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	providerID := insurance.ProviderID(req.ProviderID)
	if !h.registry.Known(providerID) {
		writeBadRequest(w, "unknown provider_id")
		return
	}
	patient, err := req.Patient.toDetails()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	verification, err := h.service.VerifyMember(r.Context(), providerID, req.MemberID, patient)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

type submitClaimRequest struct {
	EncounterID               string         `json:"encounter_id"`
	ProviderID                string         `json:"provider_id"`
	MemberID                  string         `json:"member_id"`
	PatientID                 string         `json:"patient_id"`
	Patient                   patientPayload `json:"patient"`
	Items                     []basketItem   `json:"items"`
	DiagnosisICD              string         `json:"diagnosis_icd"`
	ClinicianID               string         `json:"clinician_id"`
	VisitDate                 string         `json:"visit_date"`
	ManualAuthorizationNumber string         `json:"manual_authorization_number,omitempty"`
	Deductions                []struct {
		Reason string `json:"reason"`
		Amount int64  `json:"amount"`
	} `json:"deductions,omitempty"`
	Attachments []struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		Data        []byte `json:"data"`
	} `json:"attachments,omitempty"`
}

// SubmitClaim handles POST /api/v1/claims.
func (h *ClaimsHandler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var req submitClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.EncounterID == "" {
		writeBadRequest(w, "encounter_id is required")
		return
	}
	providerID := insurance.ProviderID(req.ProviderID)
	if !h.registry.Known(providerID) {
		writeBadRequest(w, "unknown provider_id")
		return
	}
	patient, err := req.Patient.toDetails()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	visitDate := time.Now().UTC()
	if req.VisitDate != "" {
		visitDate, err = time.Parse("2006-01-02", req.VisitDate)
		if err != nil {
			writeBadRequest(w, "visit_date must be YYYY-MM-DD")
			return
		}
	}

	submit := claims.SubmitRequest{
		EncounterID:               req.EncounterID,
		ProviderID:                providerID,
		MemberID:                  req.MemberID,
		Patient:                   patient,
		PatientID:                 req.PatientID,
		Basket:                    h.basketFromItems(req.Items),
		DiagnosisICD:              req.DiagnosisICD,
		ClinicianID:               req.ClinicianID,
		VisitDate:                 visitDate,
		ManualAuthorizationNumber: req.ManualAuthorizationNumber,
	}
	for _, d := range req.Deductions {
		submit.Deductions = append(submit.Deductions, claims.Deduction{Reason: d.Reason, Amount: d.Amount})
	}
	for _, a := range req.Attachments {
		submit.Attachments = append(submit.Attachments, claims.Attachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Data:        a.Data,
		})
	}

	record, err := h.service.SubmitClaim(r.Context(), submit)
	if err != nil {
		// A failed-but-recorded attempt still returns the record so the
		// front desk can show what was stored.
		if record != nil {
			writeJSON(w, domainStatus(err), struct {
				Error string              `json:"error"`
				Kind  string              `json:"kind"`
				Claim *claims.ClaimRecord `json:"claim"`
			}{Error: err.Error(), Kind: string(insurance.KindOf(err)), Claim: record})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// PollAuthorization handles GET /api/v1/claims/authorizations/{submissionID}.
func (h *ClaimsHandler) PollAuthorization(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submissionID")
	providerID := insurance.ProviderID(r.URL.Query().Get("provider_id"))
	if !h.registry.Known(providerID) {
		writeBadRequest(w, "unknown provider_id")
		return
	}
	encounterID := r.URL.Query().Get("encounter_id")

	authCtx, err := h.service.PollAuthorization(r.Context(), providerID, encounterID, submissionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authCtx)
}

// ListPatientClaims handles GET /api/v1/patients/{patientID}/claims.
func (h *ClaimsHandler) ListPatientClaims(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	records, err := h.service.ListClaimsByPatient(r.Context(), patientID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []claims.ClaimRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HealthCheck handles GET /health.
func (h *ClaimsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
