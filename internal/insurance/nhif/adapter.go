package nhif

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// cardNumberPattern is the NHIF card format: 9 to 12 digits. Anything else
// is rejected before the transport is touched.
var cardNumberPattern = regexp.MustCompile(`^[0-9]{9,12}$`)

// Adapter normalizes NHIF member lookups into the common verification
// result. NHIF is an authorization/folio-family provider: a successful
// lookup may already carry an authorization number usable for claims.
type Adapter struct {
	transport insurance.Transport
	logger    *logging.Logger
}

// NewAdapter creates an NHIF verification adapter.
func NewAdapter(transport insurance.Transport, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		transport: transport,
		logger:    logger.WithComponent("nhif"),
	}
}

// VerifyMember looks up an NHIF card and maps the response onto the fixed
// failure taxonomy. A format-invalid card number never reaches the network.
func (a *Adapter) VerifyMember(ctx context.Context, memberID string, patient insurance.PatientDetails) (*insurance.MemberVerification, error) {
	memberID = strings.TrimSpace(memberID)
	if !cardNumberPattern.MatchString(memberID) {
		return nil, insurance.NewError(insurance.KindInvalidMemberID, "nhif.verify",
			"NHIF card numbers are 9-12 digits; re-check the card and try again")
	}

	raw, err := insurance.CallWithReauth(ctx, a.transport, opGetCardDetails, cardDetailsRequest{CardNo: memberID})
	if err != nil {
		return nil, classifyTransportError("nhif.verify", err)
	}

	var resp cardDetailsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, insurance.WrapError(insurance.KindUnknown, "nhif.verify",
			"NHIF returned an unreadable card-details response", err)
	}

	switch strings.ToUpper(strings.TrimSpace(resp.CardStatus)) {
	case "ACTIVE":
		// fall through to success
	case "UNVERIFIED", "PENDING ACTIVATION":
		return nil, insurance.NewError(insurance.KindUnverifiedMember, "nhif.verify",
			"card exists but has not been activated; the member must complete activation at an NHIF office")
	case "EXPIRED", "INACTIVE":
		return nil, insurance.NewError(insurance.KindInactiveMember, "nhif.verify",
			"card is expired or inactive; the member should renew with NHIF before treatment is billed")
	case "SUSPENDED":
		return nil, insurance.NewError(insurance.KindInactiveMember, "nhif.verify",
			"card is suspended; contact NHIF before billing this member")
	default:
		return nil, insurance.NewError(insurance.KindUnknown, "nhif.verify",
			"NHIF reported card status "+resp.CardStatus+"; contact NHIF support")
	}

	verification := &insurance.MemberVerification{
		ProviderID:          insurance.ProviderNHIF,
		MemberID:            resp.CardNo,
		IsValid:             true,
		MemberName:          joinName(resp.FirstName, resp.MiddleName, resp.LastName),
		SchemeName:          resp.SchemeName,
		Status:              insurance.StatusActive,
		AuthorizationNumber: strings.TrimSpace(resp.AuthorizationNo),
		VerifiedAt:          time.Now().UTC(),
	}

	if resp.Benefits != nil {
		verification.Benefits = insurance.Benefits{
			DentalCoverage:  resp.Benefits.DentalCovered,
			AnnualLimit:     resp.Benefits.AnnualCeiling,
			UsedAmount:      resp.Benefits.AmountUtilized,
			RemainingAmount: resp.Benefits.AmountRemaining,
			CopayPercent:    resp.Benefits.CopayPercent,
			Deductible:      resp.Benefits.Deductible,
		}
	}

	a.logger.Info("member verified",
		"card_no", resp.CardNo,
		"scheme", resp.SchemeName,
		"authorization_no", verification.AuthorizationNumber != "",
	)
	return verification, nil
}

func joinName(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// classifyTransportError maps transport failures onto the taxonomy:
// rate limits, 5xx and deadline expiry are transient; everything else is
// surfaced as unknown.
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
