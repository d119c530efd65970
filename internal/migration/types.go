package migration

import (
	"time"

	"ledgerd/internal/models"
)

// LegacyAccount is the account record served to clients of the first API generation.
type LegacyAccount struct {
	ID             string  `json:"_id"`
	OrganizationID string  `json:"organizationId"`
	AccountCode    string  `json:"accountCode"`
	AccountName    string  `json:"accountName"`
	AccountType    string  `json:"accountType"`
	NormalBalance  string  `json:"normalBalance"`
	ParentAccount  *string `json:"parentAccount,omitempty"`
	IsActive       bool    `json:"isActive"`
	Balance        float64 `json:"balance"`
}

// LegacyTransactionGroup is the transaction group record of the first API
// generation. Its entries carry a back reference to the group.
type LegacyTransactionGroup struct {
	ID                   string               `json:"_id"`
	GroupNumber          string               `json:"groupNumber"`
	OrganizationID       string               `json:"organizationId"`
	Description          string               `json:"description"`
	TransactionDate      time.Time            `json:"transactionDate"`
	Status               string               `json:"status"`
	TotalAmount          float64              `json:"totalAmount"`
	IsBalanced           bool                 `json:"isBalanced"`
	SourceTransactionID  string               `json:"sourceTransactionId,omitempty"`
	LinkedTransactionIDs []string             `json:"linkedTransactionIds,omitempty"`
	FundingType          string               `json:"fundingType"`
	CreatedBy            string               `json:"createdBy"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
	ConfirmedAt          *time.Time           `json:"confirmedAt,omitempty"`
	Entries              []models.LegacyEntry `json:"entries"`
}
