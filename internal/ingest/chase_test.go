package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkellner/basis/internal/model"
)

const chaseHeaderLine = "Transaction Date,Post Date,Description,Category,Type,Amount,Memo"

func TestChaseParse(t *testing.T) {
	input := chaseHeaderLine + "\n" +
		"01/15/2024,01/17/2024,GROCERY STORE,Groceries,Sale,-85.25,\n" +
		"01/20/2024,01/20/2024,AUTOMATIC PAYMENT - THANK,,Payment,500.00,\n" +
		"01/22/2024,01/23/2024,RETURN AT STORE,Shopping,Return,19.99,extra note\n"

	txns, err := chaseParser{}.Parse(context.Background(), strings.NewReader(input), 1)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	charge := txns[0]
	assert.Equal(t, model.TypeExpense, charge.Type)
	assert.Equal(t, "85.25", charge.Amount.String())
	assert.Equal(t, "Groceries", charge.BankCategory)
	require.NotNil(t, charge.PostDate)
	assert.Equal(t, 17, charge.PostDate.Day())

	payment := txns[1]
	assert.Equal(t, model.TypeTransfer, payment.Type)

	refund := txns[2]
	assert.Equal(t, model.TypeIncome, refund.Type)
	assert.Equal(t, "extra note", refund.Metadata["memo"])
}

func TestChaseTypeRules(t *testing.T) {
	tests := []struct {
		name        string
		description string
		typeField   string
		amount      string
		want        model.TransactionType
	}{
		{"payment type field", "PAYMENT RECEIVED", "Payment", "500.00", model.TypeTransfer},
		{"automatic payment description", "AUTOMATIC PAYMENT - THANK YOU", "Adjustment", "500.00", model.TypeTransfer},
		{"negative is a charge", "MERCHANT", "Sale", "-10.00", model.TypeExpense},
		{"positive is a credit", "MERCHANT REFUND", "Return", "10.00", model.TypeIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := []string{"01/15/2024", "01/16/2024", tt.description, "", tt.typeField, tt.amount, ""}
			txn, err := chaseRow(row, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, txn.Type)
		})
	}
}

func TestChaseParseRejectsWrongHeader(t *testing.T) {
	_, err := chaseParser{}.Parse(context.Background(), strings.NewReader("Date,Amount\n"), 1)
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "chase", formatErr.Institution)
}
