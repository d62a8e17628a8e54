// Package categorize assigns a category to a transaction from its plaintext
// fields, before any encryption happens.
package categorize

import (
	"context"
	"strconv"
	"strings"

	"github.com/nexpass/gocardless-sync/pkg/crypto"
	"github.com/nexpass/gocardless-sync/pkg/logging"
	"github.com/nexpass/gocardless-sync/pkg/models"
)

// Uncategorized is the category of last resort.
const Uncategorized = "Uncategorized"

// Categories is the closed list of valid category labels.
var Categories = []string{
	"Groceries",
	"Restaurants",
	"Education",
	"Transport",
	"Travel",
	"Shopping",
	"Utilities",
	"Entertainment",
	"Health",
	"Income",
	"Miscellaneous",
	Uncategorized,
	"Bank Transfer",
}

// keywordRules are evaluated in order; the first match wins. The order is
// load-bearing: reordering reclassifies existing traffic.
var keywordRules = []struct {
	category string
	keywords []string
}{
	{"Restaurants", []string{"restaurant", "cafe", "coffee", "mcdonald", "starbucks"}},
	{"Transport", []string{"uber", "taxi", "fuel", "gas", "petrol"}},
	{"Shopping", []string{"amazon", "store", "shopping", "mall"}},
	{"Entertainment", []string{"netflix", "spotify", "entertainment"}},
	{"Utilities", []string{"electric", "gas", "water", "internet", "rent"}},
	{"Groceries", []string{"grocery", "supermarket", "aldi", "tesco"}},
}

var incomeKeywords = []string{"salary", "payroll", "income"}

// Labeler classifies a transaction via an external model. Implementations
// must honor the closed category list; callers validate the label anyway.
type Labeler interface {
	Label(ctx context.Context, description, counterparty, amount string) (string, error)
}

// Classifier assigns categories in three tiers: remembered exact-text
// matches, keyword heuristics, then an external model fallback.
type Classifier struct {
	labeler Labeler
	hints   map[string]string
}

// New creates a Classifier. labeler may be nil, in which case the model
// tier is skipped.
func New(labeler Labeler) *Classifier {
	return &Classifier{labeler: labeler}
}

// SetHints installs the remembered text-to-category map for the current
// user. Keys are built with HintKey.
func (c *Classifier) SetHints(hints map[string]string) {
	c.hints = hints
}

// Categorize returns a category for the given plaintext fields. It never
// returns an error: every failure path degrades to Uncategorized.
func (c *Classifier) Categorize(ctx context.Context, description, counterparty, amount string) string {
	if category, ok := c.hints[HintKey(description, counterparty, amount)]; ok && category != "" {
		return category
	}

	if category := keywordCategory(description, counterparty, amount); category != Uncategorized {
		return category
	}

	if c.labeler == nil {
		return Uncategorized
	}

	label, err := c.labeler.Label(ctx, description, counterparty, amount)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Msg("model classification failed")
		return Uncategorized
	}
	for _, category := range Categories {
		if label == category {
			return label
		}
	}
	return Uncategorized
}

// keywordCategory runs the ordered keyword rules. Income applies only to
// positive amounts carrying a salary/payroll keyword.
func keywordCategory(description, counterparty, amount string) string {
	text := strings.ToLower(strings.TrimSpace(counterparty + " " + description))
	if text == "" {
		return Uncategorized
	}

	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.category
			}
		}
	}

	if value, err := strconv.ParseFloat(amount, 64); err == nil && value > 0 {
		for _, keyword := range incomeKeywords {
			if strings.Contains(text, keyword) {
				return "Income"
			}
		}
	}

	return Uncategorized
}

// HintKey builds the remembered-text key for a transaction.
func HintKey(description, counterparty, amount string) string {
	return strings.ToLower(description + " " + counterparty + " " + amount)
}

// HintsFromRecords builds the text-to-category map from previously synced
// transactions, decrypting the sensitive fields client-side. Records with
// no usable category are skipped.
func HintsFromRecords(cipher *crypto.Fieldcipher, records []models.TransactionRecord) map[string]string {
	hints := make(map[string]string, len(records))
	for _, rec := range records {
		if rec.Category == "" || rec.Category == Uncategorized {
			continue
		}
		key := HintKey(cipher.Decrypt(rec.Description), cipher.Decrypt(rec.Counterparty), cipher.Decrypt(rec.Amount))
		hints[key] = rec.Category
	}
	return hints
}
