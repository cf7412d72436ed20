package claims

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brightsmile-clinic/claims-platform/internal/billing"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

// EncounterMeta is the clinic-side context stamped onto a claim payload.
type EncounterMeta struct {
	EncounterID  string
	PatientID    string
	DiagnosisICD string
	ClinicianID  string
	VisitDate    time.Time
}

// Deduction is a discount applied to an encounter. Deductions become
// explicit modifier lines instead of adjusted item prices so the original
// subtotal stays auditable.
type Deduction struct {
	Reason string
	Amount int64
}

// ProviderClaimPayload is the provider-ready wire shape the orchestrator
// submits.
type ProviderClaimPayload struct {
	BatchCode           string               `json:"batch_code"`
	ProviderID          insurance.ProviderID `json:"provider_id"`
	MemberID            string               `json:"member_id"`
	AuthorizationNumber string               `json:"authorization_number,omitempty"`
	SessionID           string               `json:"session_id,omitempty"`
	DiagnosisICD        string               `json:"diagnosis_icd"`
	VisitDate           string               `json:"visit_date"`
	ClinicianID         string               `json:"clinician_id"`
	Lines               []ClaimLine          `json:"lines"`
	Subtotal            int64                `json:"subtotal"`
	TotalAmount         int64                `json:"total_amount"`

	// Attachments carries optional binary evidence (x-rays, photos). The
	// orchestrator strips these on its single reduced-payload retry.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is optional binary evidence on a claim.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// genericItemCode is used when a treatment name has no mapping; a claim
// line never goes out without a code.
const genericItemCode = "DEN-GEN"

// defaultItemCodes maps normalized treatment names to provider item codes.
var defaultItemCodes = map[string]string{
	"consultation":    "DEN-CONS",
	"filling":         "DEN-FILL",
	"extraction":      "DEN-EXTR",
	"scaling":         "DEN-SCAL",
	"polish":          "DEN-POLI",
	"x-ray":           "DEN-XRAY",
	"root canal":      "DEN-ROOT",
	"crown":           "DEN-CROW",
	"denture":         "DEN-DENT",
	"fluoride":        "DEN-FLUO",
	"whitening":       "DEN-WHIT",
	"implant":         "DEN-IMPL",
	"orthodontic kit": "DEN-ORTH",
}

// batchSeq seeds batch codes; combined with the encounter id the collision
// probability is negligible without a central counter.
var batchSeq atomic.Uint64

// Builder maps a basket plus verification and authorization context into
// the wire shape a provider expects, independent of transport.
type Builder struct {
	itemCodes map[string]string
}

// NewBuilder creates a claim builder with the default item-code table.
func NewBuilder() *Builder {
	return &Builder{itemCodes: defaultItemCodes}
}

// NewBuilderWithCodes creates a builder with a custom item-code table.
func NewBuilderWithCodes(codes map[string]string) *Builder {
	merged := make(map[string]string, len(defaultItemCodes)+len(codes))
	for k, v := range defaultItemCodes {
		merged[k] = v
	}
	for k, v := range codes {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Builder{itemCodes: merged}
}

// Build constructs the provider payload. Line totals are unit*quantity
// unless the basket carries an explicit total, in which case the explicit
// total wins and the discrepancy is flagged on the line, never silently
// dropped.
func (b *Builder) Build(basket billing.Basket, verification *insurance.MemberVerification,
	authCtx *insurance.AuthorizationContext, meta EncounterMeta,
	deductions []Deduction, attachments []Attachment) (*ProviderClaimPayload, error) {

	if err := basket.Validate(); err != nil {
		return nil, fmt.Errorf("claims: build: %w", err)
	}
	if verification == nil {
		return nil, fmt.Errorf("claims: build: verification is required")
	}
	if authCtx == nil {
		return nil, fmt.Errorf("claims: build: authorization context is required")
	}

	payload := &ProviderClaimPayload{
		BatchCode:           b.batchCode(meta.EncounterID),
		ProviderID:          verification.ProviderID,
		MemberID:            verification.MemberID,
		AuthorizationNumber: authCtx.AuthorizationNumber,
		SessionID:           authCtx.SessionID,
		DiagnosisICD:        meta.DiagnosisICD,
		VisitDate:           meta.VisitDate.Format("2006-01-02"),
		ClinicianID:         meta.ClinicianID,
		Attachments:         attachments,
	}

	for _, item := range basket {
		line := ClaimLine{
			ItemCode:  b.itemCode(item.Name),
			Name:      item.Name,
			UnitPrice: item.UnitCost,
			Quantity:  item.Quantity,
			LineTotal: item.Total(),
		}
		if line.UnitPrice*int64(line.Quantity) != line.LineTotal {
			// Package-priced line; the explicit total is authoritative.
			line.CorrectedUnitPrice = true
		}
		payload.Lines = append(payload.Lines, line)
		payload.Subtotal += line.LineTotal
	}

	payload.TotalAmount = payload.Subtotal
	for _, d := range deductions {
		if d.Amount <= 0 {
			continue
		}
		payload.Lines = append(payload.Lines, ClaimLine{
			ItemCode:  "ADJ-DISC",
			Name:      d.Reason,
			UnitPrice: -d.Amount,
			Quantity:  1,
			LineTotal: -d.Amount,
			Modifier:  true,
		})
		payload.TotalAmount -= d.Amount
	}

	return payload, nil
}

// ResolveLines maps a basket to pre-authorization request lines with item
// codes resolved, for the authorization-family handshake.
func (b *Builder) ResolveLines(basket billing.Basket) []insurance.ResolveLine {
	lines := make([]insurance.ResolveLine, 0, len(basket))
	for _, item := range basket {
		lines = append(lines, insurance.ResolveLine{
			ItemCode:  b.itemCode(item.Name),
			Name:      item.Name,
			UnitPrice: item.UnitCost,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// ReconcileLine resolves a disagreement between a supplied line total and
// unit*quantity: the explicit total is trusted and the unit price derived
// from it, with the correction flagged on the line.
func ReconcileLine(line ClaimLine) ClaimLine {
	if line.Quantity <= 0 || line.LineTotal == 0 {
		return line
	}
	if line.UnitPrice*int64(line.Quantity) == line.LineTotal {
		return line
	}
	line.UnitPrice = line.LineTotal / int64(line.Quantity)
	line.CorrectedUnitPrice = true
	return line
}

func (b *Builder) itemCode(name string) string {
	if code, ok := b.itemCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return genericItemCode
}

func (b *Builder) batchCode(encounterID string) string {
	seq := batchSeq.Add(1)
	frag := encounterID
	if len(frag) > 8 {
		frag = frag[:8]
	}
	return fmt.Sprintf("BC-%s-%s-%06d", time.Now().UTC().Format("20060102"), strings.ToUpper(frag), seq)
}
