// =============================================================================
// IATI Activity Export - IATI XML Parser
// =============================================================================
//
// This module reads <iati-activities> documents and produces one
// types.Activity per <iati-activity> element. It handles:
//   - IATI 1.x and 2.x activity date types ("start-planned" or "1", ...)
//   - IATI 1.x and 2.x transaction type codes ("D" or "3", ...)
//   - Titles and descriptions as plain text (1.x) or <narrative> (2.x)
//   - Codelist name resolution for countries and DAC sectors
//
// RAW XML:
//   Each activity keeps the exact bytes of its <iati-activity> element,
//   prefixes and all, for the XML export.
//
// USAGE:
//   parser, err := iatixml.Open(path, codelists, logger)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       activity := parser.Activity()
//       // Process the activity...
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
//
// Input must be UTF-8. The document is held in memory so raw fragments can
// be sliced out of it; activities are still built one at a time.
//
// =============================================================================

package iatixml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/iati-export/internal/codelist"
	"github.com/ginjaninja78/iati-export/internal/types"
)

// activityElement is the local name of an activity element.
const activityElement = "iati-activity"

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser yields activities one at a time.
type StreamingParser struct {
	data      []byte
	decoder   *xml.Decoder
	closer    io.Closer
	codelists *codelist.Codelists
	logger    *slog.Logger

	current *types.Activity
	count   int
	err     error
}

// NewStreamingParser reads r and prepares to yield its activities.
//
// PARAMETERS:
//   - r: The IATI XML document.
//   - cl: Codelists for name resolution. Nil uses codelist.Default().
//   - logger: Receives warnings about values that could not be parsed.
//     Nil uses slog.Default().
//
// RETURNS:
//   - A pointer to the StreamingParser.
//   - An error if r cannot be read.
func NewStreamingParser(r io.Reader, cl *codelist.Codelists, logger *slog.Logger) (*StreamingParser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read IATI XML: %w", err)
	}

	if cl == nil {
		cl = codelist.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StreamingParser{
		data:      data,
		decoder:   xml.NewDecoder(bytes.NewReader(data)),
		codelists: cl,
		logger:    logger,
	}, nil
}

// Open creates a parser for a file. Close releases the file.
func Open(path string, cl *codelist.Codelists, logger *slog.Logger) (*StreamingParser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewStreamingParser(file, cl, logger)
	if err != nil {
		file.Close()
		return nil, err
	}
	parser.closer = file
	return parser, nil
}

// Parse reads every activity of r.
func Parse(r io.Reader, cl *codelist.Codelists) ([]*types.Activity, error) {
	parser, err := NewStreamingParser(r, cl, nil)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	var activities []*types.Activity
	for parser.Next() {
		activities = append(activities, parser.Activity())
	}
	return activities, parser.Err()
}

// Next advances to the next activity. Returns false when there are no more
// activities or the document is malformed.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	for {
		start := p.decoder.InputOffset()
		tok, err := p.decoder.Token()
		if err == io.EOF {
			p.current = nil
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading activity %d: %w", p.count+1, err)
			p.current = nil
			return false
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != activityElement {
			continue
		}

		var raw rawActivity
		if err := p.decoder.DecodeElement(&raw, &se); err != nil {
			p.err = fmt.Errorf("error decoding activity %d: %w", p.count+1, err)
			p.current = nil
			return false
		}
		end := p.decoder.InputOffset()

		p.count++
		p.current = p.build(&raw, string(p.data[start:end]))
		return true
	}
}

// Activity returns the current activity.
func (p *StreamingParser) Activity() *types.Activity {
	return p.current
}

// Count returns the number of activities read so far.
func (p *StreamingParser) Count() int {
	return p.count
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file, if the parser opened one.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// All adapts the parser to a sequence. Check Err after iterating.
func (p *StreamingParser) All() iter.Seq[*types.Activity] {
	return func(yield func(*types.Activity) bool) {
		for p.Next() {
			if !yield(p.Activity()) {
				return
			}
		}
	}
}

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

type rawActivity struct {
	DefaultCurrency string           `xml:"default-currency,attr"`
	Identifier      string           `xml:"iati-identifier"`
	ReportingOrg    rawText          `xml:"reporting-org"`
	Titles          []rawText        `xml:"title"`
	Descriptions    []rawText        `xml:"description"`
	Dates           []rawDate        `xml:"activity-date"`
	Countries       []rawCountry     `xml:"recipient-country"`
	Sectors         []rawSector      `xml:"sector"`
	Transactions    []rawTransaction `xml:"transaction"`
}

type rawText struct {
	Text       string   `xml:",chardata"`
	Narratives []string `xml:"narrative"`
}

// value prefers the first narrative (2.x) over element text (1.x).
func (t rawText) value() string {
	for _, n := range t.Narratives {
		if s := strings.TrimSpace(n); s != "" {
			return s
		}
	}
	return strings.TrimSpace(t.Text)
}

type rawDate struct {
	Type    string `xml:"type,attr"`
	ISODate string `xml:"iso-date,attr"`
	Text    string `xml:",chardata"`
}

type rawCountry struct {
	rawText
	Code       string `xml:"code,attr"`
	Percentage string `xml:"percentage,attr"`
}

type rawSector struct {
	rawText
	Code       string `xml:"code,attr"`
	Vocabulary string `xml:"vocabulary,attr"`
	Percentage string `xml:"percentage,attr"`
}

type rawTransaction struct {
	Type struct {
		Code string `xml:"code,attr"`
	} `xml:"transaction-type"`
	Value struct {
		Currency string `xml:"currency,attr"`
		Text     string `xml:",chardata"`
	} `xml:"value"`
}

// =============================================================================
// BUILDING ACTIVITIES
// =============================================================================

// build converts the decoded element into an activity.
func (p *StreamingParser) build(raw *rawActivity, rawXML string) *types.Activity {
	a := &types.Activity{
		IATIIdentifier:  strings.TrimSpace(raw.Identifier),
		ReportingOrg:    raw.ReportingOrg.value(),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(raw.DefaultCurrency)),
		RawXML:          rawXML,
	}
	if len(raw.Titles) > 0 {
		a.Title = raw.Titles[0].value()
	}
	if len(raw.Descriptions) > 0 {
		a.Description = raw.Descriptions[0].value()
	}

	for _, d := range raw.Dates {
		p.setDate(a, d)
	}

	for _, c := range raw.Countries {
		country := p.codelists.Country(c.Code)
		if country.Name == "" {
			country.Name = c.value()
		}
		a.RecipientCountryPercentages = append(a.RecipientCountryPercentages, types.CountryPercentage{
			Country:    country,
			Percentage: p.percentage(a, c.Percentage),
		})
	}

	for _, s := range raw.Sectors {
		a.SectorPercentages = append(a.SectorPercentages, types.SectorPercentage{
			Sector:     p.sector(s),
			Percentage: p.percentage(a, s.Percentage),
		})
	}

	for _, t := range raw.Transactions {
		a.Transactions = append(a.Transactions, p.transaction(a, t))
	}

	return a
}

// dateTypes maps 1.x and 2.x activity date types to their field.
var dateTypes = map[string]func(*types.Activity) **time.Time{
	"start-planned": func(a *types.Activity) **time.Time { return &a.StartPlanned },
	"start-actual":  func(a *types.Activity) **time.Time { return &a.StartActual },
	"end-planned":   func(a *types.Activity) **time.Time { return &a.EndPlanned },
	"end-actual":    func(a *types.Activity) **time.Time { return &a.EndActual },
	"1":             func(a *types.Activity) **time.Time { return &a.StartPlanned },
	"2":             func(a *types.Activity) **time.Time { return &a.StartActual },
	"3":             func(a *types.Activity) **time.Time { return &a.EndPlanned },
	"4":             func(a *types.Activity) **time.Time { return &a.EndActual },
}

func (p *StreamingParser) setDate(a *types.Activity, d rawDate) {
	field, ok := dateTypes[strings.TrimSpace(d.Type)]
	if !ok {
		return
	}

	value := strings.TrimSpace(d.ISODate)
	if value == "" {
		value = strings.TrimSpace(d.Text)
	}
	if len(value) > len("2006-01-02") {
		value = value[:len("2006-01-02")]
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		p.logger.Warn("ignoring unparseable activity date",
			slog.String("iati_identifier", a.IATIIdentifier),
			slog.String("type", d.Type),
			slog.String("value", value))
		return
	}
	*field(a) = &t
}

func (p *StreamingParser) percentage(a *types.Activity, value string) decimal.NullDecimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.logger.Warn("ignoring unparseable percentage",
			slog.String("iati_identifier", a.IATIIdentifier),
			slog.String("value", value))
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// sector resolves DAC codes through the codelist; other vocabularies keep
// the name given in the document.
func (p *StreamingParser) sector(s rawSector) *types.Sector {
	code := strings.TrimSpace(s.Code)
	if code == "" {
		return nil
	}

	name := ""
	switch strings.TrimSpace(s.Vocabulary) {
	case "", "DAC", "1":
		name = p.codelists.Sector(code).Name
	}
	if name == "" {
		name = s.value()
	}
	return &types.Sector{Code: code, Name: name}
}

func (p *StreamingParser) transaction(a *types.Activity, t rawTransaction) types.Transaction {
	tx := types.Transaction{
		Currency: strings.ToUpper(strings.TrimSpace(t.Value.Currency)),
	}

	if tt, ok := codelist.TransactionType(t.Type.Code); ok {
		tx.Type = tt
	} else {
		p.logger.Warn("unknown transaction type",
			slog.String("iati_identifier", a.IATIIdentifier),
			slog.String("code", t.Type.Code))
	}

	amount := strings.ReplaceAll(strings.TrimSpace(t.Value.Text), ",", "")
	if amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			p.logger.Warn("ignoring unparseable transaction value",
				slog.String("iati_identifier", a.IATIIdentifier),
				slog.String("value", t.Value.Text))
		} else {
			tx.Amount = d
		}
	}

	return tx
}
