package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
)

// Actor is the authenticated caller a ledger operation runs for. It is
// supplied by the auth layer and passed explicitly into every operation.
type Actor struct {
	UserID         string
	OrganizationID string
}

// AccountInput holds the fields for creating an account.
type AccountInput struct {
	Code          string
	Name          string
	AccountType   models.AccountType
	NormalBalance ledger.Side
	ParentID      *string
	Description   string
}

// AccountUpdateFields holds optional fields for updating an account.
// Nil pointer fields are left unchanged; an empty ParentID clears the parent.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	ParentID    *string
}

// AccountFilter holds optional filter parameters for listing accounts.
type AccountFilter struct {
	AccountType     *models.AccountType
	IncludeInactive bool
	Search          string
}

// BalancePoster keeps cached account balances in step with confirmed groups.
type BalancePoster interface {
	ApplyEntries(tx *gorm.DB, organizationID string, entries []ledger.Entry, reverse bool) error
}

// AccountChecker resolves the accounts referenced by entries. Accounts that
// do not exist in the organization are absent from the returned map.
type AccountChecker interface {
	LookupAccounts(ctx context.Context, organizationID string, accountIDs []string) (map[string]models.Account, error)
}

// AccountServicer defines the contract for the chart of accounts.
type AccountServicer interface {
	AccountChecker
	BalancePoster
	CreateAccount(ctx context.Context, actor Actor, in AccountInput) (*models.Account, error)
	GetAccounts(ctx context.Context, actor Actor, page pagination.PageRequest, filter AccountFilter) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(ctx context.Context, actor Actor, accountID string) (*models.Account, error)
	UpdateAccount(ctx context.Context, actor Actor, accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeactivateAccount(ctx context.Context, actor Actor, accountID string) (*models.Account, error)
}

// TransactionGroupInput holds the fields for creating a transaction group.
type TransactionGroupInput struct {
	Description          string
	TransactionDate      time.Time
	Entries              []ledger.Entry
	SourceTransactionID  *string
	LinkedTransactionIDs []string
}

// TransactionGroupUpdateFields holds optional fields for updating a draft group.
// Nil fields are left unchanged. A non-nil Entries replaces all entries; an
// empty SourceTransactionID clears the primary funding source. A non-nil
// Version must match the stored version.
type TransactionGroupUpdateFields struct {
	Version              *int64
	Description          *string
	TransactionDate      *time.Time
	Entries              []ledger.Entry
	SourceTransactionID  *string
	LinkedTransactionIDs *[]string
}

// TransactionFilter holds optional filter parameters for listing transaction groups.
type TransactionFilter struct {
	Status              *ledger.Status
	FundingType         *ledger.FundingType
	FromDate            *time.Time
	ToDate              *time.Time
	SourceTransactionID *string
	GroupNumber         *int64
	Search              string
}

// CostOfSalesInput describes a sale whose inventory cost is moved into cost
// of goods sold using a pre-computed unit cost.
type CostOfSalesInput struct {
	ProductID          string
	Quantity           decimal.Decimal
	CogsAccountID      string
	InventoryAccountID string
	Description        string
	TransactionDate    time.Time
	SaleTransactionID  *string
}

// TransactionGroupServicer defines the contract for storing transaction groups.
type TransactionGroupServicer interface {
	CreateTransactionGroup(ctx context.Context, actor Actor, in TransactionGroupInput) (*models.TransactionGroup, error)
	GetTransactionGroups(ctx context.Context, actor Actor, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.TransactionGroup], error)
	GetTransactionGroupByID(ctx context.Context, actor Actor, groupID string) (*models.TransactionGroup, error)
	UpdateTransactionGroup(ctx context.Context, actor Actor, groupID string, fields TransactionGroupUpdateFields) (*models.TransactionGroup, error)
	DeleteTransactionGroup(ctx context.Context, actor Actor, groupID string) error
	GetBalance(ctx context.Context, actor Actor, groupID string) (*ledger.ValidationResult, error)
	ValidateEntries(entries []ledger.Entry) ledger.ValidationResult
	CreateCostOfSales(ctx context.Context, actor Actor, in CostOfSalesInput) (*models.TransactionGroup, error)
}

// ConfirmationServicer drives the draft/confirmed/cancelled state machine.
type ConfirmationServicer interface {
	ConfirmTransactionGroup(ctx context.Context, actor Actor, groupID string) (*models.TransactionGroup, error)
	UnlockTransactionGroup(ctx context.Context, actor Actor, groupID string) (*models.TransactionGroup, error)
	CancelTransactionGroup(ctx context.Context, actor Actor, groupID string) (*models.TransactionGroup, error)
}

// GroupSummary is the short form of a transaction group used in reference lists.
type GroupSummary struct {
	ID          string
	GroupNumber int64
	Description string
	TotalAmount ledger.Amount
	Status      ledger.Status
}

// FundingDraw is one amount a group takes from a source group.
type FundingDraw struct {
	SourceGroupID     string
	SourceGroupNumber int64
	EntrySequence     int
	Amount            ledger.Amount
}

// FundingInfo is the funding picture of one group, computed on read.
type FundingInfo struct {
	TotalAmount     ledger.Amount
	UsedAmount      ledger.Amount
	AvailableAmount ledger.Amount
	ReferencedBy    []GroupSummary
	FundingUsages   []FundingDraw
	FundingPath     []string
}

// AvailableSource is a confirmed group with funds left to draw.
type AvailableSource struct {
	GroupSummary
	TransactionDate time.Time
	UsedAmount      ledger.Amount
	AvailableAmount ledger.Amount
}

// FundingServicer tracks which groups fund which and how much is left.
type FundingServicer interface {
	ApplyDraws(tx *gorm.DB, group *models.TransactionGroup) error
	RecordUsage(tx *gorm.DB, drawingGroupID string, draw ledger.Draw) error
	ReleaseDraws(tx *gorm.DB, drawingGroupID string) error
	UsedAmount(tx *gorm.DB, groupID string) (ledger.Amount, error)
	AvailableAmount(tx *gorm.DB, group *models.TransactionGroup) (ledger.Amount, error)
	ReferencedBy(tx *gorm.DB, groupID string) ([]GroupSummary, error)
	Dependents(tx *gorm.DB, groupID string) ([]GroupSummary, error)
	TraceFundingPath(tx *gorm.DB, groupID string) ([]string, error)
	GetFundingInfo(ctx context.Context, actor Actor, groupID string) (*FundingInfo, error)
	GetAvailableSources(ctx context.Context, actor Actor, page pagination.PageRequest) (*pagination.PageResponse[AvailableSource], error)
}

// UnitCostProvider supplies pre-computed per-unit inventory costs.
type UnitCostProvider interface {
	UnitCost(ctx context.Context, organizationID, productID string) (decimal.Decimal, error)
}

// EmbedOptions controls a run of the entry migration.
type EmbedOptions struct {
	BatchSize  int
	SampleSize int
	DryRun     bool
}

// MigrationServicer moves groups from normalized entry rows to embedded entries.
type MigrationServicer interface {
	EmbedEntries(ctx context.Context, opts EmbedOptions) (*models.MigrationReport, error)
	LatestReport(ctx context.Context) (*models.MigrationReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actor Actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
