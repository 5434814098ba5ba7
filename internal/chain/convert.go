package chain

import (
	"github.com/shopspring/decimal"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// CreditAmount converts an on-chain value to ledger cents using the
// network's fixed conversion rate (cents per native unit). The result is
// floored so conversion can never credit a fraction of a cent.
func CreditAmount(value, rate decimal.Decimal) model.Cents {
	return model.Cents(value.Mul(rate).Floor().IntPart())
}
