// Package describe renders short human-readable descriptions of records, such as
// "outgoing cheque #42 (EXPIRED)". Descriptions are for display only.
package describe

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/blnkfinance/recordlist/model"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed translations/active.*.toml
var localeFS embed.FS
var bundle *i18n.Bundle

func init() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if _, err := bundle.LoadMessageFileFS(localeFS, "translations/active.en.toml"); err != nil {
		panic(err)
	}
}

// Formatter describes records in one language. Amounts are shown with precision
// decimal places.
type Formatter struct {
	localizer *i18n.Localizer
	precision int32
}

// NewFormatter returns a Formatter for lang, falling back to English for unknown tags.
func NewFormatter(lang string, precision int32) *Formatter {
	if precision < 0 {
		precision = 0
	}
	return &Formatter{
		localizer: i18n.NewLocalizer(bundle, lang, language.English.String()),
		precision: precision,
	}
}

func (f *Formatter) t(id string) string {
	s, err := f.localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		logrus.WithField("message", id).WithError(err).Debug("missing translation")
		return id
	}
	return s
}

// Describe returns the record's description: direction, noun, display number and status.
func (f *Formatter) Describe(r *model.Record) string {
	var parts []string
	if id := directionOf(r); id != "" {
		parts = append(parts, f.t(id))
	}
	parts = append(parts, f.t(nounOf(r)))
	if !r.IsMail() {
		if n := r.TransNumForDisplay(); n > 0 {
			parts = append(parts, fmt.Sprintf("#%d", n))
		}
	}
	if id := statusOf(r); id != "" {
		parts = append(parts, "("+f.t(id)+")")
	}
	return strings.Join(parts, " ")
}

// Amount formats the record's amount with its currency symbol, e.g. "-$5.00".
// Mail has no amount.
func (f *Formatter) Amount(r *model.Record) string {
	if r.IsMail() {
		return ""
	}
	return FormatAmount(r.AmountValue(), r.CurrencySymbol(), f.precision)
}

// FormatAmount renders an amount in minor units with precision decimal places.
func FormatAmount(amount int64, symbol string, precision int32) string {
	d := decimal.New(amount, -precision)
	if d.IsNegative() {
		return "-" + symbol + d.Neg().StringFixed(precision)
	}
	return symbol + d.StringFixed(precision)
}

func nounOf(r *model.Record) string {
	k := keyOf(r)
	for _, row := range nouns {
		if row.matches(k) {
			return row.message
		}
	}
	return "nounError"
}

func directionOf(r *model.Record) string {
	for _, row := range directions {
		if row.recordType == r.RecordType() && row.outgoing == r.IsOutgoing() {
			return row.message
		}
	}
	return ""
}

func statusOf(r *model.Record) string {
	for _, row := range statuses {
		if row.matches(r) {
			return row.message
		}
	}
	return ""
}
