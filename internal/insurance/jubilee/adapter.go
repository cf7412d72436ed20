package jubilee

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// memberNumberPattern is the Jubilee member format: JB prefix, 5-8 digits,
// optional two-digit dependent suffix (JB12345 or JB12345-01).
var memberNumberPattern = regexp.MustCompile(`^JB[0-9]{5,8}(-[0-9]{2})?$`)

// Adapter normalizes Jubilee member lookups. Jubilee is a session-family
// provider: claims reference an open visit session, not an authorization
// number, so verification never yields one here.
type Adapter struct {
	transport insurance.Transport
	logger    *logging.Logger
}

// NewAdapter creates a Jubilee verification adapter.
func NewAdapter(transport insurance.Transport, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		transport: transport,
		logger:    logger.WithComponent("jubilee"),
	}
}

// VerifyMember looks up a Jubilee policy member. Benefit payloads arrive
// either structured or as loosely formatted text; an unparseable blob
// degrades to an empty benefit set with a warning flag instead of failing
// the verification.
func (a *Adapter) VerifyMember(ctx context.Context, memberID string, patient insurance.PatientDetails) (*insurance.MemberVerification, error) {
	memberID = strings.ToUpper(strings.TrimSpace(memberID))
	if !memberNumberPattern.MatchString(memberID) {
		return nil, insurance.NewError(insurance.KindInvalidMemberID, "jubilee.verify",
			"Jubilee member numbers look like JB12345 or JB12345-01; re-check the card and try again")
	}

	raw, err := insurance.CallWithReauth(ctx, a.transport, opMemberLookup, memberLookupRequest{MemberNo: memberID})
	if err != nil {
		return nil, classifyTransportError("jubilee.verify", err)
	}

	var resp memberLookupResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, insurance.WrapError(insurance.KindUnknown, "jubilee.verify",
			"Jubilee returned an unreadable member-lookup response", err)
	}

	var status insurance.MemberStatus
	switch strings.ToUpper(strings.TrimSpace(resp.Status)) {
	case "ACTIVE":
		status = insurance.StatusActive
	case "UNVERIFIED":
		return nil, insurance.NewError(insurance.KindUnverifiedMember, "jubilee.verify",
			"membership exists but is not yet verified; the member must complete verification with Jubilee")
	case "SUSPENDED":
		return nil, insurance.NewError(insurance.KindInactiveMember, "jubilee.verify",
			"membership is suspended; contact Jubilee before billing this member")
	case "INACTIVE", "EXPIRED", "LAPSED":
		return nil, insurance.NewError(insurance.KindInactiveMember, "jubilee.verify",
			"membership is inactive or lapsed; the member should renew the policy before treatment is billed")
	default:
		return nil, insurance.NewError(insurance.KindUnknown, "jubilee.verify",
			"Jubilee reported member status "+resp.Status+"; contact Jubilee support")
	}

	verification := &insurance.MemberVerification{
		ProviderID: insurance.ProviderJubilee,
		MemberID:   resp.MemberNo,
		IsValid:    true,
		MemberName: resp.MemberName,
		SchemeName: resp.PolicyName,
		Status:     status,
		VerifiedAt: time.Now().UTC(),
	}

	for _, d := range resp.Dependents {
		verification.Dependents = append(verification.Dependents, insurance.Dependent{
			MemberID: d.MemberNo,
			Name:     d.Name,
			Relation: d.Relation,
		})
	}

	benefits, degraded := extractBenefits(resp.Benefits)
	verification.Benefits = benefits
	verification.BenefitsDegraded = degraded
	if degraded {
		a.logger.Warn("benefits payload could not be parsed; continuing with empty benefit set",
			"member_no", resp.MemberNo)
	}

	return verification, nil
}

// extractBenefits parses a benefits payload that may be a structured object
// or a free-text description. Best effort only: failure degrades to an
// empty set rather than aborting the verification.
func extractBenefits(raw json.RawMessage) (insurance.Benefits, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return insurance.Benefits{}, true
	}

	var structured structuredBenefits
	if err := json.Unmarshal(raw, &structured); err == nil {
		return insurance.Benefits{
			DentalCoverage:  structured.DentalCovered,
			AnnualLimit:     structured.AnnualLimit,
			UsedAmount:      structured.Used,
			RemainingAmount: structured.Remaining,
			CopayPercent:    structured.CopayPercent,
			Deductible:      structured.Deductible,
		}, false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return insurance.Benefits{}, true
	}
	return benefitsFromText(text)
}

var (
	limitPattern     = regexp.MustCompile(`(?i)(?:annual\s+)?limit[:\s]+([0-9,]+)`)
	usedPattern      = regexp.MustCompile(`(?i)(?:used|utili[sz]ed)[:\s]+([0-9,]+)`)
	remainingPattern = regexp.MustCompile(`(?i)(?:remaining|balance)[:\s]+([0-9,]+)`)
	copayPattern     = regexp.MustCompile(`(?i)co-?pay(?:ment)?[:\s]+([0-9]+)\s*%`)
	dentalPattern    = regexp.MustCompile(`(?i)dental[:\s]+(covered|yes|included)`)
)

// benefitsFromText scrapes amounts out of text like
// "Dental: covered. Annual limit: 1,000,000. Used: 250,000. Copay: 10%".
func benefitsFromText(text string) (insurance.Benefits, bool) {
	b := insurance.Benefits{}
	matched := false

	if m := limitPattern.FindStringSubmatch(text); m != nil {
		b.AnnualLimit = parseAmount(m[1])
		matched = true
	}
	if m := usedPattern.FindStringSubmatch(text); m != nil {
		b.UsedAmount = parseAmount(m[1])
		matched = true
	}
	if m := remainingPattern.FindStringSubmatch(text); m != nil {
		b.RemainingAmount = parseAmount(m[1])
		matched = true
	} else if b.AnnualLimit > 0 {
		b.RemainingAmount = b.AnnualLimit - b.UsedAmount
	}
	if m := copayPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			b.CopayPercent = v
			matched = true
		}
	}
	if dentalPattern.MatchString(text) {
		b.DentalCoverage = true
		matched = true
	}

	return b, !matched
}

func parseAmount(s string) int64 {
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func classifyTransportError(op string, err error) error {
	var status *insurance.StatusError
	if errors.As(err, &status) {
		if status.Retryable() {
			return insurance.WrapError(insurance.KindTransient, op,
				"upstream is temporarily unavailable; retry shortly", err)
		}
		return insurance.WrapError(insurance.KindUnknown, op,
			"upstream rejected the request", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return insurance.WrapError(insurance.KindTransient, op,
			"upstream call timed out; retry shortly", err)
	}
	return insurance.WrapError(insurance.KindTransient, op,
		"could not reach upstream; retry shortly", err)
}
