package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/mkellner/basis/internal/model"
)

// ofxParser handles OFX/QFX exports. They flow through the same registry as
// the CSV parsers, so OFX accounts get identical dedup and reporting.
type ofxParser struct{}

func init() {
	Register("ofx", ofxParser{})
}

func (p ofxParser) Parse(_ context.Context, r io.Reader, accountID int64) ([]model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, &FormatError{Institution: "ofx", Expected: []string{"OFX"}, Got: []string{err.Error()}}
	}

	var transactions []model.Transaction
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convert(ofxTx, accountID))
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convert(ofxTx, accountID))
			}
		}
	}

	slog.Info("parsed ofx transactions", "count", len(transactions))
	return transactions, nil
}

func (ofxParser) convert(ofxTx ofxgo.Transaction, accountID int64) model.Transaction {
	value := decimal.NewFromBigRat(&ofxTx.TrnAmt.Rat, 2)
	trnType := fmt.Sprintf("%v", ofxTx.TrnType)

	// OFX uses negative amounts for debits.
	var txType model.TransactionType
	switch {
	case trnType == "PAYMENT" || trnType == "XFER":
		txType = model.TypeTransfer
	case value.IsNegative():
		txType = model.TypeExpense
	default:
		txType = model.TypeIncome
	}

	// OFX has no raw row text; hash the canonical fields. FITID alone is not
	// trusted because some banks recycle them across exports.
	raw := fmt.Sprintf("%s,%s,%s,%s",
		ofxTx.FiTID,
		ofxTx.DtPosted.Time.Format("2006-01-02"),
		value.StringFixed(2),
		ofxTx.Name)

	txn := model.NewTransaction(raw, accountID, ofxTx.DtPosted.Time, value.Abs(), string(ofxTx.Name), txType)

	metadata := map[string]string{"fitid": string(ofxTx.FiTID)}
	if ofxTx.Memo != "" {
		metadata["memo"] = string(ofxTx.Memo)
	}
	if ofxTx.CheckNum != "" {
		metadata["check_number"] = string(ofxTx.CheckNum)
	}
	txn.Metadata = metadata
	return txn
}

// preprocessOFX fixes common formatting issues in real-world OFX files before
// handing them to the parser.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SGML-style files sometimes drop closing angle brackets on bare tags.
	var b strings.Builder
	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "<") && !strings.Contains(trimmed, ">") {
			b.WriteString(trimmed + ">")
			b.WriteString(line[len(trimmed):])
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}
