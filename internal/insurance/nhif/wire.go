package nhif

// Wire shapes for the NHIF verification and authorization operations.

// Operations exposed by the NHIF transport.
const (
	opGetCardDetails   = "GetCardDetails"
	opAuthorizeCard    = "AuthorizeCard"
	opGetAuthorization = "GetAuthorizationStatus"
)

type cardDetailsRequest struct {
	CardNo string `json:"CardNo"`
}

type cardDetailsResponse struct {
	CardNo          string `json:"CardNo"`
	FirstName       string `json:"FirstName"`
	MiddleName      string `json:"MiddleName"`
	LastName        string `json:"LastName"`
	SchemeID        string `json:"SchemeID"`
	SchemeName      string `json:"SchemeName"`
	CardStatus      string `json:"CardStatus"`
	ExpiryDate      string `json:"ExpiryDate"`
	AuthorizationNo string `json:"AuthorizationNo"`
	Remarks         string `json:"Remarks"`

	Benefits *cardBenefits `json:"Benefits"`
}

type cardBenefits struct {
	DentalCovered   bool  `json:"DentalCovered"`
	AnnualCeiling   int64 `json:"AnnualCeiling"`
	AmountUtilized  int64 `json:"AmountUtilized"`
	AmountRemaining int64 `json:"AmountRemaining"`
	CopayPercent    int64 `json:"CopayPercent"`
	Deductible      int64 `json:"Deductible"`
}

type authorizeCardRequest struct {
	CardNo        string          `json:"CardNo"`
	FirstName     string          `json:"FirstName"`
	LastName      string          `json:"LastName"`
	DateOfBirth   string          `json:"DateOfBirth"`
	Gender        string          `json:"Gender"`
	PatientFileNo string          `json:"PatientFileNo"`
	ICDCode       string          `json:"ICDCode"`
	FacilityCode  string          `json:"FacilityCode"`
	Items         []authorizeItem `json:"Items"`
}

type authorizeItem struct {
	ItemCode  string `json:"ItemCode"`
	ItemName  string `json:"ItemName"`
	UnitPrice int64  `json:"UnitPrice"`
	Quantity  int    `json:"Quantity"`
}

type authorizeCardResponse struct {
	AuthorizationNo string `json:"AuthorizationNo"`
	SubmissionID    string `json:"SubmissionID"`
	Status          string `json:"Status"`
	Remarks         string `json:"Remarks"`
}

type authorizationStatusRequest struct {
	SubmissionID string `json:"SubmissionID"`
}

type authorizationStatusResponse struct {
	SubmissionID    string `json:"SubmissionID"`
	AuthorizationNo string `json:"AuthorizationNo"`
	Status          string `json:"Status"`
	Remarks         string `json:"Remarks"`
}
