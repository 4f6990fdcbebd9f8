package statement

import (
	"cloud.google.com/go/civil"
)

// Record is one commission statement row after reconstruction.
// Records are values: the parser creates them once and nothing mutates them afterwards.
type Record struct {
	AppID           int64      `json:"app_id"`
	Xref            int64      `json:"xref"`
	SettlementDate  civil.Date `json:"settlement_date"`
	Broker          string     `json:"broker" validate:"required,max=250"`
	SubBroker       *string    `json:"sub_broker,omitempty" validate:"omitempty,max=250"`
	BorrowerName    string     `json:"borrower_name" validate:"max=250"`
	Description     string     `json:"description" validate:"max=500"`
	TotalLoanAmount float64    `json:"total_loan_amount"`
	CommRate        float64    `json:"comm_rate"`
	Upfront         float64    `json:"upfront"`
	UpfrontInclGST  float64    `json:"upfront_incl_gst"`
}

// HasSubBroker reports whether the row carried a sub-broker column.
func (r Record) HasSubBroker() bool {
	return r.SubBroker != nil
}

// SubBrokerName returns the sub-broker or an empty string.
func (r Record) SubBrokerName() string {
	if r.SubBroker == nil {
		return ""
	}
	return *r.SubBroker
}
