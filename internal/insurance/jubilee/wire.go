package jubilee

import "encoding/json"

// Operations exposed by the Jubilee transport.
const (
	opMemberLookup = "MemberLookup"
	opListSessions = "ListSessions"
	opVerifyVisit  = "VerifyVisit"
)

type memberLookupRequest struct {
	MemberNo string `json:"memberNo"`
}

type memberLookupResponse struct {
	MemberNo   string `json:"memberNo"`
	MemberName string `json:"memberName"`
	PolicyName string `json:"policyName"`
	Status     string `json:"status"`

	// Benefits arrives either as a structured object or as a free-text
	// description, depending on the scheme. RawMessage defers the choice.
	Benefits json.RawMessage `json:"benefits"`

	Dependents []memberDependent `json:"dependents"`
}

type memberDependent struct {
	MemberNo string `json:"memberNo"`
	Name     string `json:"name"`
	Relation string `json:"relation"`
}

type structuredBenefits struct {
	DentalCovered bool  `json:"dentalCovered"`
	AnnualLimit   int64 `json:"annualLimit"`
	Used          int64 `json:"used"`
	Remaining     int64 `json:"remaining"`
	CopayPercent  int64 `json:"copayPercent"`
	Deductible    int64 `json:"deductible"`
}

type listSessionsRequest struct {
	PatientNo string `json:"patientNo"`
	Status    string `json:"status"`
}

type listSessionsResponse struct {
	Sessions []visitSession `json:"sessions"`
}

type visitSession struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	OpenedAt  string `json:"openedAt"`
}

type verifyVisitRequest struct {
	MemberNo  string `json:"memberNo"`
	PatientNo string `json:"patientNo"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type verifyVisitResponse struct {
	Verified  bool   `json:"verified"`
	SessionID string `json:"sessionId"`
	Remarks   string `json:"remarks"`
}
