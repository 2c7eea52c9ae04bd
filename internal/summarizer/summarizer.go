// Package summarizer turns a month of transactions into a short
// natural-language summary.
//
// The prompt and system instruction are built here so every Generator
// sends the same digest; the gemini subpackage is the production
// implementation.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/cashflow-api/internal/model"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("summarizer: text generation is not configured")

// Input is one calendar month of a user's money movement.
type Input struct {
	Month    time.Time // any instant in the month; only year and month are used
	Inflows  []model.Transaction
	Outflows []model.Transaction
}

// Generator produces summary text.
type Generator interface {
	Generate(ctx context.Context, in Input) (string, error)
}

// Disabled is the Generator used when no model credentials are configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Input) (string, error) {
	return "", ErrNotConfigured
}

// Naira renders an amount in kobo as Naira with two decimals, e.g.
// 150050 → "1500.50".
func Naira(kobo int64) string {
	return decimal.New(kobo, -2).StringFixed(2)
}

type digestLine struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
}

type categoryShare struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Percent  string `json:"percent"`
}

type digest struct {
	Month            string          `json:"month"`
	Currency         string          `json:"currency"`
	TotalIncome      string          `json:"totalIncome"`
	TotalExpenses    string          `json:"totalExpenses"`
	NetSavings       string          `json:"netSavings"`
	IncomeSources    []categoryShare `json:"incomeSources"`
	ExpenseBreakdown []categoryShare `json:"expenseBreakdown"`
	Inflows          []digestLine    `json:"inflows"`
	Outflows         []digestLine    `json:"outflows"`
}

// SystemInstruction sets the assistant's persona and output rules. It is
// sent separately from the prompt, as the model's system instruction.
const SystemInstruction = `You are a virtual assistant called Flowy with a knack for creating fun, engaging and concise financial summaries for the previous month. Analyze the user's transaction data and write a clear summary in a single paragraph. Be cheerful and throw in a light-hearted joke while staying professional. Include total income, total expenses, net savings and the key spending categories with percentages. End with practical advice tailored to the spending pattern, kept friendly and relatable. All monetary values are in Naira (₦). If there is no data, reply with a short humorous note about the empty month instead. Never recommend downloading external apps or services.`

const exampleFormat = `"Hey there! Last month you brought in a total income of [amount], mainly from [income sources]. Your expenses came to [amount], leaving you with net savings of [amount], which was [percentage]% of your income. Not bad, right? Your biggest splurge was [category] at [amount] ([percentage]% of expenses). No judgment, we all have our guilty pleasures! Pro tip: maybe cut back on [category-related items] this month and save for something big. Keep tracking, you're doing great!"`

// BuildPrompt renders a JSON digest of in followed by the example format.
// Amounts in the digest are already converted to Naira so the model never
// has to do unit arithmetic.
func BuildPrompt(in Input) (string, error) {
	inTotal, inShares := shares(in.Inflows)
	outTotal, outShares := shares(in.Outflows)

	d := digest{
		Month:            in.Month.UTC().Format("January 2006"),
		Currency:         "NGN",
		TotalIncome:      Naira(inTotal),
		TotalExpenses:    Naira(outTotal),
		NetSavings:       Naira(inTotal - outTotal),
		IncomeSources:    inShares,
		ExpenseBreakdown: outShares,
		Inflows:          lines(in.Inflows),
		Outflows:         lines(in.Outflows),
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("summarizer: encoding digest: %w", err)
	}

	var b strings.Builder
	b.WriteString("Transaction data:\n")
	b.Write(data)
	b.WriteString("\n\nExample format:\n")
	b.WriteString(exampleFormat)
	b.WriteString("\n\nGenerate the summary based on this format:\n")
	return b.String(), nil
}

// shares totals txs and breaks the total down per category, largest first.
func shares(txs []model.Transaction) (int64, []categoryShare) {
	var total int64
	perCategory := map[string]int64{}
	for _, tx := range txs {
		total += tx.Amount
		perCategory[categoryName(tx)] += tx.Amount
	}

	names := make([]string, 0, len(perCategory))
	for name := range perCategory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if perCategory[names[i]] != perCategory[names[j]] {
			return perCategory[names[i]] > perCategory[names[j]]
		}
		return names[i] < names[j]
	})

	out := make([]categoryShare, 0, len(names))
	for _, name := range names {
		out = append(out, categoryShare{
			Category: name,
			Amount:   Naira(perCategory[name]),
			Percent:  percent(perCategory[name], total),
		})
	}
	return total, out
}

func percent(part, whole int64) string {
	if whole == 0 {
		return "0.0"
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		StringFixed(1)
}

func lines(txs []model.Transaction) []digestLine {
	out := make([]digestLine, 0, len(txs))
	for _, tx := range txs {
		line := digestLine{
			Date:     tx.CreatedAt.UTC().Format("2006-01-02"),
			Category: categoryName(tx),
			Amount:   Naira(tx.Amount),
		}
		if tx.Description != nil {
			line.Description = *tx.Description
		}
		out = append(out, line)
	}
	return out
}

func categoryName(tx model.Transaction) string {
	if tx.Category != nil && tx.Category.Name != "" {
		return tx.Category.Name
	}
	return "Uncategorized"
}
