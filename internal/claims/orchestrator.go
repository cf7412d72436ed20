package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightsmile-clinic/claims-platform/internal/archive"
	"github.com/brightsmile-clinic/claims-platform/internal/billing"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/internal/observability/metrics"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

var claimsTracer trace.Tracer = otel.Tracer("claims.orchestrator")

// Submission operations per provider family.
const (
	opSubmitFolio = "SubmitFolio"
	opSubmitClaim = "SubmitClaim"
)

// SubmitRequest is one billable encounter handed to the orchestrator.
type SubmitRequest struct {
	EncounterID  string
	ProviderID   insurance.ProviderID
	MemberID     string
	Patient      insurance.PatientDetails
	PatientID    string
	Basket       billing.Basket
	DiagnosisICD string
	ClinicianID  string
	VisitDate    time.Time

	// ManualAuthorizationNumber carries a portal-issued approval entered
	// by an operator; it outranks anything the API derives.
	ManualAuthorizationNumber string

	Deductions  []Deduction
	Attachments []Attachment
}

// Orchestrator drives verify -> calculate -> authorize -> submit -> record
// for one encounter, enforcing at most one submission per
// (encounter, provider).
type Orchestrator struct {
	registry   *insurance.Registry
	ledger     Ledger
	builder    *Builder
	rules      map[string]billing.ProviderRules
	cache      *AuthCache
	archive    *archive.Store
	metrics    *metrics.ClaimsMetrics
	logger     *logging.Logger
	retryDelay time.Duration
}

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Registry   *insurance.Registry
	Ledger     Ledger
	Builder    *Builder
	Rules      map[string]billing.ProviderRules
	Cache      *AuthCache
	Archive    *archive.Store
	Metrics    *metrics.ClaimsMetrics
	Logger     *logging.Logger
	RetryDelay time.Duration
}

// NewOrchestrator creates the claim submission orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Registry == nil {
		panic("claims: registry required")
	}
	if cfg.Ledger == nil {
		panic("claims: ledger required")
	}
	if cfg.Builder == nil {
		cfg.Builder = NewBuilder()
	}
	if cfg.Rules == nil {
		cfg.Rules = billing.DefaultRules()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Orchestrator{
		registry:   cfg.Registry,
		ledger:     cfg.Ledger,
		builder:    cfg.Builder,
		rules:      cfg.Rules,
		cache:      cfg.Cache,
		archive:    cfg.Archive,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.WithComponent("orchestrator"),
		retryDelay: cfg.RetryDelay,
	}
}

// CalculateCopayment computes the insurer/patient split for a basket.
// Re-entrant: the UI re-invokes it whenever the basket changes.
func (o *Orchestrator) CalculateCopayment(basket billing.Basket, providerID insurance.ProviderID) billing.CopaymentResult {
	return billing.Calculate(basket, string(providerID), o.rules)
}

// VerifyMember verifies membership with the provider, retrying once on a
// transient failure after a short delay. Any other failure kind surfaces
// unchanged.
func (o *Orchestrator) VerifyMember(ctx context.Context, providerID insurance.ProviderID, memberID string, patient insurance.PatientDetails) (*insurance.MemberVerification, error) {
	ctx, span := claimsTracer.Start(ctx, "claims.verify_member")
	defer span.End()
	span.SetAttributes(attribute.String("provider", string(providerID)))

	adapter, err := o.registry.Adapter(providerID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	verification, err := adapter.VerifyMember(ctx, memberID, patient)
	if err != nil && insurance.IsTransient(err) {
		select {
		case <-time.After(o.retryDelay):
		case <-ctx.Done():
			return nil, insurance.WrapError(insurance.KindTransient, "claims.verify",
				"verification cancelled while waiting to retry", ctx.Err())
		}
		verification, err = adapter.VerifyMember(ctx, memberID, patient)
	}
	o.metrics.ObserveUpstreamLatency(string(providerID), "verify", time.Since(start).Seconds())

	if err != nil {
		o.metrics.ObserveVerification(string(providerID), string(insurance.KindOf(err)))
		return nil, err
	}
	o.metrics.ObserveVerification(string(providerID), "success")
	return verification, nil
}

// PollAuthorization checks a pending pre-authorization submission. When it
// approves and the encounter is known, the number is cached so the next
// SubmitClaim picks it up without another upstream round trip.
func (o *Orchestrator) PollAuthorization(ctx context.Context, providerID insurance.ProviderID, encounterID, submissionID string) (*insurance.AuthorizationContext, error) {
	resolver, err := o.registry.Resolver(providerID)
	if err != nil {
		return nil, err
	}
	authCtx, err := resolver.Poll(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if authCtx.Status == insurance.AuthApproved && encounterID != "" && o.cache != nil {
		if cacheErr := o.cache.PutAuthorization(ctx, encounterID, authCtx.AuthorizationNumber); cacheErr != nil {
			o.logger.Warn("failed to cache polled authorization", "encounter_id", encounterID, "error", cacheErr)
		}
	}
	return authCtx, nil
}

// ListClaimsByPatient returns the patient's claim history, newest first.
func (o *Orchestrator) ListClaimsByPatient(ctx context.Context, patientID string) ([]ClaimRecord, error) {
	return o.ledger.ListByPatient(ctx, patientID)
}

// SubmitClaim runs the full submission pipeline for one encounter.
func (o *Orchestrator) SubmitClaim(ctx context.Context, req SubmitRequest) (*ClaimRecord, error) {
	ctx, span := claimsTracer.Start(ctx, "claims.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(req.ProviderID)),
		attribute.String("encounter_id", req.EncounterID),
	)

	// Step 1: duplicate check. Advisory only; the ledger's unique
	// constraint is the real boundary (step 6).
	if prior, err := o.ledger.FindLiveClaim(ctx, req.EncounterID, req.ProviderID); err == nil && prior != nil {
		o.metrics.ObserveSubmission(string(req.ProviderID), string(insurance.KindDuplicateClaim))
		return nil, insurance.NewError(insurance.KindDuplicateClaim, "claims.submit",
			fmt.Sprintf("a claim for this encounter was already submitted (claim %s at %s); it must be cancelled before resubmitting",
				prior.ClaimID, prior.CreatedAt.Format(time.RFC3339)))
	} else if err != nil && !errors.Is(err, ErrClaimNotFound) {
		return nil, fmt.Errorf("claims: duplicate check: %w", err)
	}

	// Step 3 precondition, checked before any network call.
	if req.Basket.Subtotal() <= 0 {
		return nil, insurance.NewError(insurance.KindEmptyBasket, "claims.submit",
			"the treatment basket is empty or totals zero; add priced treatments before submitting")
	}

	// Step 2: verify.
	verification, err := o.VerifyMember(ctx, req.ProviderID, req.MemberID, req.Patient)
	if err != nil {
		o.metrics.ObserveSubmission(string(req.ProviderID), string(insurance.KindOf(err)))
		return nil, err
	}

	// Step 3: calculate. Pure; logged for the operator, not fallible.
	copay := o.CalculateCopayment(req.Basket, req.ProviderID)
	if copay.FallbackApplied {
		o.logger.Warn("no cost-sharing rules for provider; cash split applied",
			"provider", req.ProviderID, "encounter_id", req.EncounterID)
	}

	// Step 4: authorize / resolve session.
	authCtx, err := o.resolveAuthorization(ctx, req, verification)
	if err != nil {
		o.metrics.ObserveSubmission(string(req.ProviderID), string(insurance.KindOf(err)))
		return nil, err
	}

	// Step 5: build.
	payload, err := o.builder.Build(req.Basket, verification, authCtx, EncounterMeta{
		EncounterID:  req.EncounterID,
		PatientID:    req.PatientID,
		DiagnosisICD: req.DiagnosisICD,
		ClinicianID:  req.ClinicianID,
		VisitDate:    req.VisitDate,
	}, req.Deductions, req.Attachments)
	if err != nil {
		return nil, err
	}

	// Step 6+7: submit and record.
	record, err := o.submitAndRecord(ctx, req, verification, authCtx, payload)
	if err != nil {
		o.metrics.ObserveSubmission(string(req.ProviderID), string(insurance.KindOf(err)))
		return record, err
	}
	o.metrics.ObserveSubmission(string(req.ProviderID), "submitted")
	return record, nil
}

// resolveAuthorization obtains the pre-claim reference the provider family
// requires. A pending pre-authorization records the submission for support
// visibility and tells the operator to poll; nothing is ever synthesized.
func (o *Orchestrator) resolveAuthorization(ctx context.Context, req SubmitRequest, verification *insurance.MemberVerification) (*insurance.AuthorizationContext, error) {
	ctx, span := claimsTracer.Start(ctx, "claims.resolve_authorization")
	defer span.End()

	if insurance.FamilyOf(req.ProviderID) == insurance.FamilyNone {
		return &insurance.AuthorizationContext{
			ProviderID: req.ProviderID,
			Status:     insurance.AuthApproved,
		}, nil
	}

	resolver, err := o.registry.Resolver(req.ProviderID)
	if err != nil {
		return nil, err
	}

	authCtx, err := resolver.Resolve(ctx, insurance.ResolveRequest{
		EncounterID:               req.EncounterID,
		MemberID:                  req.MemberID,
		Patient:                   req.Patient,
		Verification:              verification,
		DiagnosisICD:              req.DiagnosisICD,
		Lines:                     o.builder.ResolveLines(req.Basket),
		ManualAuthorizationNumber: req.ManualAuthorizationNumber,
	})
	if err != nil {
		return nil, err
	}

	switch authCtx.Status {
	case insurance.AuthApproved:
		return authCtx, nil
	case insurance.AuthDenied:
		return nil, insurance.NewError(insurance.KindNoAuthorization, "claims.authorize",
			"the insurer denied pre-authorization for this encounter; the claim cannot be submitted")
	default:
		o.recordPendingPreauth(ctx, req, authCtx)
		return nil, insurance.NewError(insurance.KindNoAuthorization, "claims.authorize",
			fmt.Sprintf("pre-authorization %s is still pending; poll its status and resubmit once approved", authCtx.SubmissionID))
	}
}

// recordPendingPreauth stores the pending pre-authorization so later
// resolutions can reuse it and support staff can see it.
func (o *Orchestrator) recordPendingPreauth(ctx context.Context, req SubmitRequest, authCtx *insurance.AuthorizationContext) {
	if existing, err := o.ledger.FindPreauth(ctx, req.EncounterID, req.ProviderID); err == nil && existing != nil {
		// Already on record from an earlier attempt; keep the single row.
		return
	}
	record := &ClaimRecord{
		ClaimID:      uuid.New(),
		EncounterID:  req.EncounterID,
		ProviderID:   req.ProviderID,
		MemberID:     req.MemberID,
		PatientID:    req.PatientID,
		SubmissionID: authCtx.SubmissionID,
		Preauth:      true,
		Status:       StatusPending,
	}
	if err := o.ledger.Insert(ctx, record); err != nil {
		o.logger.Warn("failed to record pending pre-authorization",
			"encounter_id", req.EncounterID, "error", err)
	}
}

// submitAndRecord claims the (encounter, provider) slot in the ledger,
// submits upstream, and finalizes the record. Inserting with a live status
// before submitting is what turns a racing caller into a clean
// DuplicateClaim instead of a double submission.
func (o *Orchestrator) submitAndRecord(ctx context.Context, req SubmitRequest,
	verification *insurance.MemberVerification, authCtx *insurance.AuthorizationContext,
	payload *ProviderClaimPayload) (*ClaimRecord, error) {

	ctx, span := claimsTracer.Start(ctx, "claims.transmit")
	defer span.End()

	rawRequest, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("claims: marshal payload: %w", err)
	}

	record := &ClaimRecord{
		ClaimID:             uuid.New(),
		EncounterID:         req.EncounterID,
		ProviderID:          req.ProviderID,
		MemberID:            verification.MemberID,
		PatientID:           req.PatientID,
		AuthorizationNumber: authCtx.AuthorizationNumber,
		SessionID:           authCtx.SessionID,
		LineItems:           payload.Lines,
		TotalAmount:         payload.TotalAmount,
		Status:              StatusProcessing,
		RawRequest:          rawRequest,
	}
	if err := o.ledger.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrLiveClaimExists) {
			return nil, insurance.NewError(insurance.KindDuplicateClaim, "claims.submit",
				"another submission for this encounter completed first; no claim was sent")
		}
		return nil, fmt.Errorf("claims: reserve claim slot: %w", err)
	}

	rawResponse, submitErr := o.transmit(ctx, req.ProviderID, payload)
	if submitErr != nil {
		reason := submitErr.Error()
		if recErr := o.ledger.RecordOutcome(ctx, record.ClaimID, StatusPending, reason, rawResponse); recErr != nil {
			o.logger.Error("failed to record failed submission",
				"claim_id", record.ClaimID, "error", recErr)
		}
		record.Status = StatusPending
		record.FailureReason = reason
		record.RawResponse = rawResponse
		return record, submitErr
	}

	if err := o.ledger.RecordOutcome(ctx, record.ClaimID, StatusSubmitted, "", rawResponse); err != nil {
		return record, fmt.Errorf("claims: record submission outcome: %w", err)
	}
	record.Status = StatusSubmitted
	record.RawResponse = rawResponse

	o.archiveClaim(ctx, record)
	o.logger.Info("claim submitted",
		"claim_id", record.ClaimID,
		"encounter_id", req.EncounterID,
		"provider", req.ProviderID,
		"total_amount", record.TotalAmount,
	)
	return record, nil
}

// transmit performs the provider submission call. A provider-reported
// validation failure is retried exactly once with optional attachments
// stripped; that reduced-payload retry is the only payload mutation
// permitted anywhere in the pipeline.
func (o *Orchestrator) transmit(ctx context.Context, providerID insurance.ProviderID, payload *ProviderClaimPayload) (json.RawMessage, error) {
	transport, err := o.registry.Transport(providerID)
	if err != nil {
		return nil, err
	}

	operation := opSubmitClaim
	if insurance.FamilyOf(providerID) == insurance.FamilyAuthorization {
		operation = opSubmitFolio
	}

	start := time.Now()
	raw, err := insurance.CallWithReauth(ctx, transport, operation, payload)
	o.metrics.ObserveUpstreamLatency(string(providerID), operation, time.Since(start).Seconds())
	if err == nil {
		return raw, nil
	}

	var status *insurance.StatusError
	if errors.As(err, &status) && !status.Retryable() && len(payload.Attachments) > 0 {
		o.logger.Warn("provider rejected payload; retrying once without attachments",
			"provider", providerID, "status", status.Code)
		reduced := *payload
		reduced.Attachments = nil
		raw, retryErr := insurance.CallWithReauth(ctx, transport, operation, &reduced)
		if retryErr == nil {
			return raw, nil
		}
		err = retryErr
	}

	if errors.As(err, &status) && !status.Retryable() {
		return nil, insurance.WrapError(insurance.KindProviderValidationFailed, "claims.transmit",
			"the insurer rejected the claim payload; review the line items and attachments", err)
	}
	return nil, insurance.WrapError(insurance.KindTransient, "claims.transmit",
		"the insurer could not be reached; the attempt was recorded and can be retried", err)
}

func (o *Orchestrator) archiveClaim(ctx context.Context, record *ClaimRecord) {
	if o.archive == nil || !o.archive.Enabled() {
		return
	}
	audit := &archive.ClaimAudit{
		ClaimID:     record.ClaimID.String(),
		EncounterID: record.EncounterID,
		ProviderID:  string(record.ProviderID),
		Status:      string(record.Status),
		RawRequest:  json.RawMessage(record.RawRequest),
		RawResponse: json.RawMessage(record.RawResponse),
	}
	if err := o.archive.ArchiveClaim(ctx, audit); err != nil {
		o.logger.Warn("failed to archive claim", "claim_id", record.ClaimID, "error", err)
	}
}
