// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ledgerd/internal/ledger"
	"ledgerd/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("normal_balance", validateNormalBalance)
	_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
	_ = v.RegisterValidation("funding_type", validateFundingType)
	_ = v.RegisterValidation("money", validateMoney)
}

// decimalValue lets tags on decimal.Decimal fields see the number as a string.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func validateAccountType(fl validator.FieldLevel) bool {
	return models.AccountType(fl.Field().String()).Valid()
}

func validateNormalBalance(fl validator.FieldLevel) bool {
	switch ledger.Side(fl.Field().String()) {
	case ledger.SideDebit, ledger.SideCredit:
		return true
	}
	return false
}

func validateTransactionStatus(fl validator.FieldLevel) bool {
	return ledger.Status(fl.Field().String()).Valid()
}

func validateFundingType(fl validator.FieldLevel) bool {
	switch ledger.FundingType(fl.Field().String()) {
	case ledger.FundingOriginal, ledger.FundingDerived:
		return true
	}
	return false
}

// validateMoney accepts non-negative amounts with at most two decimal places.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	_, err = ledger.AmountFromDecimal(d)
	return err == nil
}
