package jubilee

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// SessionCache stores resolved session ids for the lifetime of an
// encounter. Implemented by the redis auth cache.
type SessionCache interface {
	GetSession(ctx context.Context, encounterID string) (string, error)
	PutSession(ctx context.Context, encounterID, sessionID string) error
}

// Resolver locates the open visit session Jubilee requires before a claim.
//
// Resolution order: an ACTIVE session for the clinic patient number, then a
// PENDING one, then a combined member+patient verification call that may
// open a session as a side effect. If all three come back empty the member
// has not presented their card at a terminal, which only a physical-world
// action can fix, so the failure is a hard stop rather than a retry.
type Resolver struct {
	transport insurance.Transport
	cache     SessionCache
	logger    *logging.Logger
}

// NewResolver creates a Jubilee session resolver.
func NewResolver(transport insurance.Transport, cache SessionCache, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		transport: transport,
		cache:     cache,
		logger:    logger.WithComponent("jubilee"),
	}
}

// Resolve finds or negotiates a session id for the encounter.
func (r *Resolver) Resolve(ctx context.Context, req insurance.ResolveRequest) (*insurance.AuthorizationContext, error) {
	if r.cache != nil {
		if sessionID, err := r.cache.GetSession(ctx, req.EncounterID); err == nil && sessionID != "" {
			return r.approved(req.EncounterID, sessionID), nil
		}
	}

	for _, status := range []string{"ACTIVE", "PENDING"} {
		sessionID, err := r.listSessions(ctx, req.Patient.PatientNumber, status)
		if err != nil {
			return nil, err
		}
		if sessionID != "" {
			r.cachePut(ctx, req.EncounterID, sessionID)
			return r.approved(req.EncounterID, sessionID), nil
		}
	}

	sessionID, err := r.verifyVisit(ctx, req)
	if err != nil {
		return nil, err
	}
	if sessionID != "" {
		r.cachePut(ctx, req.EncounterID, sessionID)
		return r.approved(req.EncounterID, sessionID), nil
	}

	return nil, insurance.NewError(insurance.KindNoSession, "jubilee.resolve",
		"no open visit session for this member; the member must present their card at the clinic terminal to open a session")
}

// Poll is a no-op for the session family: sessions are opened by card
// presentation, not by a pollable submission.
func (r *Resolver) Poll(ctx context.Context, submissionID string) (*insurance.AuthorizationContext, error) {
	return nil, insurance.NewError(insurance.KindUnknown, "jubilee.poll",
		"Jubilee sessions are not pollable; re-run session resolution instead")
}

func (r *Resolver) approved(encounterID, sessionID string) *insurance.AuthorizationContext {
	return &insurance.AuthorizationContext{
		ProviderID: insurance.ProviderJubilee,
		SessionID:  sessionID,
		Status:     insurance.AuthApproved,
	}
}

func (r *Resolver) listSessions(ctx context.Context, patientNo, status string) (string, error) {
	raw, err := insurance.CallWithReauth(ctx, r.transport, opListSessions, listSessionsRequest{
		PatientNo: patientNo,
		Status:    status,
	})
	if err != nil {
		return "", classifyTransportError("jubilee.sessions", err)
	}

	var resp listSessionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", insurance.WrapError(insurance.KindUnknown, "jubilee.sessions",
			"Jubilee returned an unreadable session list", err)
	}

	for _, s := range resp.Sessions {
		if strings.EqualFold(s.Status, status) && s.SessionID != "" {
			return s.SessionID, nil
		}
	}
	return "", nil
}

func (r *Resolver) verifyVisit(ctx context.Context, req insurance.ResolveRequest) (string, error) {
	raw, err := insurance.CallWithReauth(ctx, r.transport, opVerifyVisit, verifyVisitRequest{
		MemberNo:  req.MemberID,
		PatientNo: req.Patient.PatientNumber,
		FirstName: req.Patient.FirstName,
		LastName:  req.Patient.LastName,
	})
	if err != nil {
		return "", classifyTransportError("jubilee.visit", err)
	}

	var resp verifyVisitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", insurance.WrapError(insurance.KindUnknown, "jubilee.visit",
			"Jubilee returned an unreadable visit verification", err)
	}
	return strings.TrimSpace(resp.SessionID), nil
}

func (r *Resolver) cachePut(ctx context.Context, encounterID, sessionID string) {
	if r.cache == nil || encounterID == "" {
		return
	}
	if err := r.cache.PutSession(ctx, encounterID, sessionID); err != nil {
		r.logger.Warn("failed to cache session id", "encounter_id", encounterID, "error", err)
	}
}
