package domain

import "time"

// Customer is a single customer record owned by a consultant.
//
// The ID is generated client-side at creation and never reassigned.
// It is unique within one consultant's record set; ConsultantID scopes
// records when several consultants share a remote store.
type Customer struct {
	// ID is the stable opaque identifier. Legacy records carry numeric
	// ids, newer ones UUIDs; comparisons go through NormalizeID.
	ID string `json:"id"`
	// ConsultantID identifies the owning consultant.
	ConsultantID string `json:"consultantId,omitempty"`

	// Contact details.
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	NRIC       string `json:"nric,omitempty"`
	DOB        string `json:"dob,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Address    string `json:"address,omitempty"`

	// Sales metadata.
	ConsultantName  string `json:"consultantName,omitempty"`
	AgreementNumber string `json:"agreementNumber,omitempty"`
	DealClosed      bool   `json:"dealClosed,omitempty"`
	Notes           string `json:"notes,omitempty"`

	// Checklist maps named progress flags to their done state.
	Checklist map[string]bool `json:"checklist,omitempty"`

	// Proposal and VSA sub-records. All fields optional.
	Proposal *SalesProposal `json:"proposal,omitempty"`
	VSA      *SaleAgreement `json:"vsa,omitempty"`

	// Remote folder linkage.
	FolderID   string            `json:"folderId,omitempty"`
	ShareLink  string            `json:"shareLink,omitempty"`
	Subfolders map[string]string `json:"subfolders,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Encrypted is reserved for future use.
	Encrypted bool `json:"encrypted,omitempty"`
}

// SalesProposal holds the sales-proposal fields attached to a customer.
type SalesProposal struct {
	Model        string `json:"model,omitempty"`
	Variant      string `json:"variant,omitempty"`
	Colour       string `json:"colour,omitempty"`
	ListPrice    string `json:"listPrice,omitempty"`
	Discount     string `json:"discount,omitempty"`
	TradeIn      string `json:"tradeIn,omitempty"`
	LoanAmount   string `json:"loanAmount,omitempty"`
	LoanTenure   string `json:"loanTenure,omitempty"`
	InterestRate string `json:"interestRate,omitempty"`
	Remarks      string `json:"remarks,omitempty"`
}

// SaleAgreement holds the vehicle-sale-agreement fields attached to a customer.
type SaleAgreement struct {
	AgreementDate  string `json:"agreementDate,omitempty"`
	ChassisNumber  string `json:"chassisNumber,omitempty"`
	EngineNumber   string `json:"engineNumber,omitempty"`
	RegistrationNo string `json:"registrationNo,omitempty"`
	DeliveryDate   string `json:"deliveryDate,omitempty"`
	Deposit        string `json:"deposit,omitempty"`
	BalanceDue     string `json:"balanceDue,omitempty"`
	PaymentMode    string `json:"paymentMode,omitempty"`
}

// RecordID returns the customer's identifier for merge comparisons.
func (c Customer) RecordID() string { return c.ID }

// SetChecklistItem flips a named progress flag, allocating the map lazily.
func (c *Customer) SetChecklistItem(name string, done bool) {
	if c.Checklist == nil {
		c.Checklist = make(map[string]bool)
	}
	c.Checklist[name] = done
}

// SetSubfolder records the remote id of a named per-customer subfolder.
func (c *Customer) SetSubfolder(name, remoteID string) {
	if c.Subfolders == nil {
		c.Subfolders = make(map[string]string)
	}
	c.Subfolders[name] = remoteID
}
