package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bankcat/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXParser reads OFX and QFX bank and credit card statements.
type OFXParser struct {
	period string
}

// NewOFXParser creates a new OFX parser.
func NewOFXParser(period string) *OFXParser {
	return &OFXParser{period: period}
}

// Format returns the parser name.
func (p *OFXParser) Format() string { return FormatOFX }

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of a bare opening tag
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Parse reads every bank and credit card statement in the file. Negative
// amounts become debits and positive amounts credits.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	result := &Result{}
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList != nil {
				p.appendTransactions(result, stmt.BankTranList.Transactions)
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList != nil {
				p.appendTransactions(result, stmt.BankTranList.Transactions)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.OutOfRange = countOutOfRange(result.Lines, p.period)
	slog.Info("parsed OFX statement",
		"rows", len(result.Lines),
		"dropped", result.Dropped,
		"out_of_range", result.OutOfRange,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)
	return result, nil
}

func (p *OFXParser) appendTransactions(result *Result, txns []ofxgo.Transaction) {
	for i := range txns {
		line, ok := convertTransaction(&txns[i])
		if !ok {
			result.Dropped++
			continue
		}
		result.Lines = append(result.Lines, line)
	}
}

func convertTransaction(tx *ofxgo.Transaction) (model.StatementLine, bool) {
	desc := description(tx)
	if desc == "" || tx.DtPosted.IsZero() {
		return model.StatementLine{}, false
	}

	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		return model.StatementLine{}, false
	}

	line := model.StatementLine{
		Date:        tx.DtPosted.Time,
		Description: desc,
	}
	if amount.IsNegative() {
		line.Debit = amount.Neg()
	} else {
		line.Credit = amount
	}
	return line, true
}

// description prefers NAME, switching to MEMO when NAME is generic and to
// the PAYEE name when NAME is empty.
func description(tx *ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	memo := strings.TrimSpace(string(tx.Memo))

	if name == "" && tx.Payee != nil {
		name = strings.TrimSpace(string(tx.Payee.Name))
	}
	if memo != "" && (name == "" || isGenericDescription(name)) {
		return memo
	}
	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
