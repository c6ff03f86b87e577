package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		line := "01/15/2024,COFFEE SHOP,4.50"
		assert.Equal(t, Checksum(line), Checksum(line))
	})

	t.Run("distinct rows produce distinct ids", func(t *testing.T) {
		a := Checksum("01/15/2024,COFFEE SHOP,4.50,ref-001")
		b := Checksum("01/15/2024,COFFEE SHOP,4.50,ref-002")
		assert.NotEqual(t, a, b)
	})

	t.Run("is a sha256 hex digest", func(t *testing.T) {
		sum := Checksum("anything")
		assert.Len(t, sum, 64)
		assert.Equal(t, "ee0874170b7f6f32b8c2ac9573c428d35b575270a66b757c2c0185d2bd09718d", sum)
	})
}

func TestNewTransaction(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("42.50")

	txn := NewTransaction("raw,row,text", 7, date, amount, "COFFEE SHOP", TypeExpense)

	assert.Equal(t, Checksum("raw,row,text"), txn.ID)
	assert.Equal(t, int64(7), txn.AccountID)
	assert.Equal(t, date, txn.TransactionDate)
	assert.True(t, amount.Equal(txn.Amount))
	assert.Equal(t, TypeExpense, txn.Type)
}

func TestAmortized(t *testing.T) {
	var txn Transaction
	require.False(t, txn.Amortized())

	months := 12
	txn.AmortizeMonths = &months
	assert.False(t, txn.Amortized(), "months alone is not a schedule")

	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	txn.AmortizeEndDate = &end
	assert.True(t, txn.Amortized())
}
