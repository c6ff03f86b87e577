package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/basis/internal/model"
)

const discoverHeaderLine = "Trans. Date,Post Date,Description,Amount,Category"

func TestDiscoverParse(t *testing.T) {
	input := discoverHeaderLine + "\n" +
		"01/15/2024,01/16/2024,RESTAURANT,42.00,Restaurants\n" +
		"01/20/2024,01/20/2024,DIRECTPAY FULL BALANCE,-300.00,Payments and Credits\n" +
		"01/22/2024,01/23/2024,CASHBACK BONUS,-5.00,Awards and Rebate Credits\n"

	txns, err := discoverParser{}.Parse(context.Background(), strings.NewReader(input), 1)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	charge := txns[0]
	assert.Equal(t, model.TypeExpense, charge.Type)
	assert.Equal(t, "42", charge.Amount.String())
	assert.Equal(t, "Restaurants", charge.BankCategory)
	require.NotNil(t, charge.PostDate)

	payment := txns[1]
	assert.Equal(t, model.TypeTransfer, payment.Type, "full balance direct payments are transfers")

	cashback := txns[2]
	assert.Equal(t, model.TypeIncome, cashback.Type)
}

func TestDiscoverPaymentRequiresBothSignals(t *testing.T) {
	// A credit categorized as Payments and Credits but not a DIRECTPAY payment
	// is income, not a transfer.
	input := discoverHeaderLine + "\n" +
		"01/20/2024,01/20/2024,STATEMENT CREDIT,-10.00,Payments and Credits\n"

	txns, err := discoverParser{}.Parse(context.Background(), strings.NewReader(input), 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TypeIncome, txns[0].Type)
}

func TestDiscoverParseRejectsWrongHeader(t *testing.T) {
	_, err := discoverParser{}.Parse(context.Background(), strings.NewReader("Date,Description,Amount\n"), 1)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "discover", formatErr.Institution)
}
