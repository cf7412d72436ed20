package nhif

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// PreauthStore looks up a previously stored pre-authorization for an
// encounter. Implemented by the claim ledger.
type PreauthStore interface {
	FindPreauth(ctx context.Context, encounterID string) (*insurance.AuthorizationContext, error)
}

// AuthCache stores resolved authorization numbers for the lifetime of an
// encounter. Implemented by the redis auth cache.
type AuthCache interface {
	GetAuthorization(ctx context.Context, encounterID string) (string, error)
	PutAuthorization(ctx context.Context, encounterID, number string) error
}

// Resolver obtains the authorization number NHIF requires before a claim.
//
// Number precedence, by freshness: a manually entered number (portal
// approvals not yet visible here) beats an API-derived one, which beats a
// previously stored one. When nothing exists, a pre-authorization request
// is submitted and either answered immediately or left for the caller to
// poll; no timers run here.
type Resolver struct {
	transport    insurance.Transport
	preauths     PreauthStore
	cache        AuthCache
	facilityCode string
	logger       *logging.Logger
}

// NewResolver creates an NHIF authorization resolver.
func NewResolver(transport insurance.Transport, preauths PreauthStore, cache AuthCache, facilityCode string, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		transport:    transport,
		preauths:     preauths,
		cache:        cache,
		facilityCode: facilityCode,
		logger:       logger.WithComponent("nhif"),
	}
}

// Resolve produces the authorization context for an encounter.
func (r *Resolver) Resolve(ctx context.Context, req insurance.ResolveRequest) (*insurance.AuthorizationContext, error) {
	if manual := strings.TrimSpace(req.ManualAuthorizationNumber); manual != "" {
		r.cachePut(ctx, req.EncounterID, manual)
		return &insurance.AuthorizationContext{
			ProviderID:          insurance.ProviderNHIF,
			AuthorizationNumber: manual,
			Status:              insurance.AuthApproved,
		}, nil
	}

	if req.Verification != nil && req.Verification.AuthorizationNumber != "" {
		number := req.Verification.AuthorizationNumber
		r.cachePut(ctx, req.EncounterID, number)
		return &insurance.AuthorizationContext{
			ProviderID:          insurance.ProviderNHIF,
			AuthorizationNumber: number,
			Status:              insurance.AuthApproved,
		}, nil
	}

	if stored, err := r.storedAuthorization(ctx, req.EncounterID); err == nil && stored != nil {
		return stored, nil
	}

	return r.requestPreauth(ctx, req)
}

// storedAuthorization reuses a cached number or a stored pre-authorization
// record that has not been denied.
func (r *Resolver) storedAuthorization(ctx context.Context, encounterID string) (*insurance.AuthorizationContext, error) {
	if r.cache != nil {
		if number, err := r.cache.GetAuthorization(ctx, encounterID); err == nil && number != "" {
			return &insurance.AuthorizationContext{
				ProviderID:          insurance.ProviderNHIF,
				AuthorizationNumber: number,
				Status:              insurance.AuthApproved,
			}, nil
		}
	}
	if r.preauths == nil {
		return nil, nil
	}
	stored, err := r.preauths.FindPreauth(ctx, encounterID)
	if err != nil || stored == nil {
		return nil, err
	}
	if stored.Status == insurance.AuthDenied {
		return nil, nil
	}
	if stored.AuthorizationNumber == "" && stored.SubmissionID == "" {
		// Nothing to reuse: no number and no in-flight submission.
		return nil, nil
	}
	// A pending record with a submission ID is still in flight upstream;
	// reuse it rather than requesting a second pre-authorization.
	return stored, nil
}

func (r *Resolver) requestPreauth(ctx context.Context, req insurance.ResolveRequest) (*insurance.AuthorizationContext, error) {
	items := make([]authorizeItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		items = append(items, authorizeItem{
			ItemCode:  line.ItemCode,
			ItemName:  line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	payload := authorizeCardRequest{
		CardNo:        req.MemberID,
		FirstName:     req.Patient.FirstName,
		LastName:      req.Patient.LastName,
		DateOfBirth:   req.Patient.DateOfBirth.Format("2006-01-02"),
		Gender:        req.Patient.Gender,
		PatientFileNo: req.Patient.PatientNumber,
		ICDCode:       req.DiagnosisICD,
		FacilityCode:  r.facilityCode,
		Items:         items,
	}

	raw, err := insurance.CallWithReauth(ctx, r.transport, opAuthorizeCard, payload)
	if err != nil {
		return nil, classifyTransportError("nhif.authorize", err)
	}

	var resp authorizeCardResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, insurance.WrapError(insurance.KindUnknown, "nhif.authorize",
			"NHIF returned an unreadable authorization response", err)
	}

	switch strings.ToUpper(strings.TrimSpace(resp.Status)) {
	case "APPROVED", "ACCEPTED", "":
		if resp.AuthorizationNo == "" && resp.SubmissionID == "" {
			// The upstream omitted both; a locally synthesized number would
			// risk colliding with a real one, so this is a hard failure.
			return nil, insurance.NewError(insurance.KindNoAuthorization, "nhif.authorize",
				"NHIF approved the request but returned no authorization number; obtain one through the NHIF portal and enter it manually")
		}
	case "DENIED", "REJECTED":
		return &insurance.AuthorizationContext{
			ProviderID: insurance.ProviderNHIF,
			Status:     insurance.AuthDenied,
		}, nil
	}

	if resp.AuthorizationNo != "" {
		r.cachePut(ctx, req.EncounterID, resp.AuthorizationNo)
		return &insurance.AuthorizationContext{
			ProviderID:          insurance.ProviderNHIF,
			AuthorizationNumber: resp.AuthorizationNo,
			Status:              insurance.AuthApproved,
		}, nil
	}

	r.logger.Info("pre-authorization submitted for polling",
		"encounter_id", req.EncounterID,
		"submission_id", resp.SubmissionID,
	)
	return &insurance.AuthorizationContext{
		ProviderID:   insurance.ProviderNHIF,
		SubmissionID: resp.SubmissionID,
		Status:       insurance.AuthPending,
	}, nil
}

// Poll checks a pending pre-authorization submission. Callers drive the
// polling cadence; each call performs exactly one upstream check.
func (r *Resolver) Poll(ctx context.Context, submissionID string) (*insurance.AuthorizationContext, error) {
	raw, err := insurance.CallWithReauth(ctx, r.transport, opGetAuthorization, authorizationStatusRequest{SubmissionID: submissionID})
	if err != nil {
		return nil, classifyTransportError("nhif.poll", err)
	}

	var resp authorizationStatusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, insurance.WrapError(insurance.KindUnknown, "nhif.poll",
			"NHIF returned an unreadable authorization status", err)
	}

	authCtx := &insurance.AuthorizationContext{
		ProviderID:   insurance.ProviderNHIF,
		SubmissionID: resp.SubmissionID,
	}

	switch strings.ToUpper(strings.TrimSpace(resp.Status)) {
	case "APPROVED":
		if resp.AuthorizationNo == "" {
			return nil, insurance.NewError(insurance.KindNoAuthorization, "nhif.poll",
				"NHIF reports approval but no authorization number; obtain it through the NHIF portal and enter it manually")
		}
		authCtx.Status = insurance.AuthApproved
		authCtx.AuthorizationNumber = resp.AuthorizationNo
	case "DENIED", "REJECTED":
		authCtx.Status = insurance.AuthDenied
	default:
		authCtx.Status = insurance.AuthPending
	}
	return authCtx, nil
}

func (r *Resolver) cachePut(ctx context.Context, encounterID, number string) {
	if r.cache == nil || encounterID == "" {
		return
	}
	if err := r.cache.PutAuthorization(ctx, encounterID, number); err != nil {
		r.logger.Warn("failed to cache authorization number", "encounter_id", encounterID, "error", err)
	}
}
