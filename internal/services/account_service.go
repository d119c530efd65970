package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
	"ledgerd/internal/pagination"
)

// accountService handles the chart of accounts.
type accountService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, log *zap.SugaredLogger) AccountServicer {
	return &accountService{db: db, log: log}
}

// CreateAccount creates an active account. The normal balance defaults to the
// side implied by the account type.
func (s *accountService) CreateAccount(ctx context.Context, actor Actor, in AccountInput) (*models.Account, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account code is required")
	}
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if !in.AccountType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown account type "+string(in.AccountType))
	}

	normal := in.NormalBalance
	if normal == "" {
		normal = in.AccountType.NormalBalance()
	}
	if normal != ledger.SideDebit && normal != ledger.SideCredit {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "normal balance must be debit or credit")
	}

	account := &models.Account{
		OrganizationID: actor.OrganizationID,
		Code:           code,
		Name:           name,
		AccountType:    in.AccountType,
		NormalBalance:  normal,
		Description:    in.Description,
		IsActive:       true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ParentID != nil && *in.ParentID != "" {
			if err := s.checkParent(tx, actor.OrganizationID, "", *in.ParentID); err != nil {
				return err
			}
			account.ParentID = in.ParentID
		}
		if err := tx.Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.WithMessage(apperrors.ErrDuplicateAccountCode, "account code "+code+" is already in use")
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("account created", "account_id", account.ID, "code", account.Code, "organization_id", actor.OrganizationID)
	return account, nil
}

// GetAccounts retrieves a paginated list of accounts ordered by code.
func (s *accountService) GetAccounts(ctx context.Context, actor Actor, page pagination.PageRequest, filter AccountFilter) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Account{}).Where("organization_id = ?", actor.OrganizationID)
	if !filter.IncludeInactive {
		base = base.Where("is_active = ?", true)
	}
	if filter.AccountType != nil {
		base = base.Where("account_type = ?", *filter.AccountType)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		base = base.Where("(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)", like, like)
	}
	base = base.Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Order("code ASC").Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account of the caller's organization. Inactive
// accounts are returned too.
func (s *accountService) GetAccountByID(ctx context.Context, actor Actor, accountID string) (*models.Account, error) {
	return s.findAccount(s.db.WithContext(ctx), actor.OrganizationID, accountID)
}

// UpdateAccount updates the descriptive fields of an account. Code and type
// are fixed once entries may reference the account.
func (s *accountService) UpdateAccount(ctx context.Context, actor Actor, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	var account *models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.findAccount(tx, actor.OrganizationID, accountID)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if fields.Name != nil {
			name := strings.TrimSpace(*fields.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
			}
			updates["name"] = name
		}
		if fields.Description != nil {
			updates["description"] = *fields.Description
		}
		if fields.ParentID != nil {
			if *fields.ParentID == "" {
				updates["parent_id"] = nil
			} else {
				if err := s.checkParent(tx, actor.OrganizationID, account.ID, *fields.ParentID); err != nil {
					return err
				}
				updates["parent_id"] = *fields.ParentID
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(account).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("id = ?", account.ID).First(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeactivateAccount hides an account from new entries. Existing entries keep
// referencing it.
func (s *accountService) DeactivateAccount(ctx context.Context, actor Actor, accountID string) (*models.Account, error) {
	account, err := s.findAccount(s.db.WithContext(ctx), actor.OrganizationID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return account, nil
	}
	if err := s.db.WithContext(ctx).Model(account).Update("is_active", false).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	account.IsActive = false
	s.log.Infow("account deactivated", "account_id", account.ID, "organization_id", actor.OrganizationID)
	return account, nil
}

// LookupAccounts returns the accounts among accountIDs that belong to the
// organization, keyed by id.
func (s *accountService) LookupAccounts(ctx context.Context, organizationID string, accountIDs []string) (map[string]models.Account, error) {
	found := make(map[string]models.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return found, nil
	}
	var accounts []models.Account
	if err := s.db.WithContext(ctx).
		Where("organization_id = ? AND id IN ?", organizationID, accountIDs).
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, a := range accounts {
		found[a.ID] = a
	}
	return found, nil
}

// ApplyEntries posts entries to the cached account balances, or reverses a
// previous posting. It must run inside the caller's transaction.
func (s *accountService) ApplyEntries(tx *gorm.DB, organizationID string, entries []ledger.Entry, reverse bool) error {
	for _, e := range entries {
		var account models.Account
		if err := tx.Where("organization_id = ? AND id = ?", organizationID, e.AccountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.WithMessage(apperrors.ErrAccountNotFound, "account "+e.AccountID+" not found")
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		posted := e
		if reverse {
			posted.DebitAmount, posted.CreditAmount = e.CreditAmount, e.DebitAmount
		}
		delta := account.Apply(posted) - account.Balance
		if err := tx.Model(&models.Account{}).
			Where("id = ?", account.ID).
			UpdateColumn("balance", gorm.Expr("balance + ?", int64(delta))).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

func (s *accountService) findAccount(db *gorm.DB, organizationID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := db.Where("id = ? AND organization_id = ?", accountID, organizationID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// checkParent rejects parents outside the organization and parents whose
// ancestry already contains selfID.
func (s *accountService) checkParent(tx *gorm.DB, organizationID, selfID, parentID string) error {
	seen := map[string]bool{}
	current := parentID
	for current != "" {
		if current == selfID || seen[current] {
			return apperrors.WithMessage(apperrors.ErrInvalidParentAccount, "account hierarchy cannot contain a cycle")
		}
		seen[current] = true

		var parent models.Account
		if err := tx.Where("id = ? AND organization_id = ?", current, organizationID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.WithMessage(apperrors.ErrInvalidParentAccount, "parent account "+current+" not found")
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return nil
}
