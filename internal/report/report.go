// Package report renders payment ledgers as plain text.
package report

import (
	_ "embed"
	"fmt"
	"io"
	"text/template"

	"github.com/lildude/challengeledger/internal/payments"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed report.tmpl
var reportTemplate string

// NoAthletesNotice is shown instead of a report when nobody has registered.
const NoAthletesNotice = "No athletes registered yet. Use /auth to connect a Strava account."

type line struct {
	Name   string
	Owed   int
	Amount string
	Top    bool
}

type data struct {
	Year        int
	Lines       []line
	APIRequests int
	CacheHits   int
}

// Renderer formats amounts for one language and currency.
type Renderer struct {
	printer *message.Printer
	unit    currency.Unit
	tmpl    *template.Template
}

// New returns a Renderer. lang is a BCP 47 tag and cur an ISO 4217 code.
func New(lang, cur string) (*Renderer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parsing report language: %w", err)
	}
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return nil, fmt.Errorf("parsing report currency: %w", err)
	}
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{printer: message.NewPrinter(tag), unit: unit, tmpl: tmpl}, nil
}

// Amount formats a whole amount with the grouping rules of the language.
func (r *Renderer) Amount(v int) string {
	return r.printer.Sprintf("%d %s", v, r.unit)
}

// Render writes the ledger in entry order. The highest payer is marked only
// when they owe something.
func (r *Renderer) Render(w io.Writer, l *payments.Ledger) error {
	d := data{Year: l.Year, APIRequests: l.APIRequests, CacheHits: l.CacheHits}
	top, ok := l.HighestPayer()
	marked := false
	for _, e := range l.Entries {
		ln := line{Name: e.Name, Owed: e.Owed, Amount: r.Amount(e.Owed)}
		if ok && !marked && e.Owed > 0 && e.Name == top.Name {
			ln.Top = true
			marked = true
		}
		d.Lines = append(d.Lines, ln)
	}
	return r.tmpl.Execute(w, d)
}

// Failure writes the single message shown when an evaluation fails.
func (r *Renderer) Failure(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Could not work out the payments: %v\n", err)
	return werr
}
