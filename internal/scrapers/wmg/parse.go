package wmg

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	"coursewatch/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parser_parse      = "parser.parse"
	report_parser_parse_card = "parser.parse-card"
)

const DateLayout = "2006/01/02"

var dateTokenRegex = regexp.MustCompile(`\d{4}/\d{2}/\d{2}`)

// Filter narrows parsed cards, empty fields match everything. Name and
// Location must match exactly, Date is a YYYY/MM/DD day.
type Filter struct {
	Name     string
	Date     string
	Location string
}

func (f Filter) Empty() bool {
	return f.Name == "" && f.Date == "" && f.Location == ""
}

type Parser struct {
	schema Schema
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewParser(schema Schema, clock chrono.TimeAPI, tel telemetry.API) Parser {
	assert.NotNil(schema)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return Parser{
		schema: schema,
		time:   clock,
		tel:    telemetry.NewScopedAPI("wmg", tel),
	}
}

func (p Parser) Schema() Schema {
	return p.schema
}

func (p Parser) document(markup string) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		p.tel.ReportBroken(report_parser_parse, err)
		return nil, false
	}
	return doc, true
}

// Parse returns every card matching filter. An invalid filter date yields
// no results. When both a name and a date are given the first match is
// returned on its own.
func (p Parser) Parse(markup string, filter Filter) []EventRecord {
	filter.Name = strings.TrimSpace(filter.Name)
	filter.Location = strings.TrimSpace(filter.Location)
	filter.Date = strings.TrimSpace(filter.Date)

	if filter.Date != "" {
		_, err := time.Parse(DateLayout, filter.Date)
		if err != nil {
			p.tel.ReportWarning(report_parser_parse, fmt.Errorf("invalid date filter %q, expected YYYY/MM/DD", filter.Date))
			return nil
		}
	}

	doc, ok := p.document(markup)
	if !ok {
		return nil
	}

	now := p.time.Now()
	var out []EventRecord
	doc.Find(p.schema.CardSelector()).EachWithBreak(func(i int, card *goquery.Selection) bool {
		record, matched, err := p.parseCard(card, filter, now)
		if err != nil {
			p.tel.ReportWarning(report_parser_parse_card, fmt.Errorf("card %d: %w", i, err))
			return true
		}
		if !matched {
			return true
		}
		out = append(out, record)
		return !(filter.Name != "" && filter.Date != "")
	})

	p.tel.ReportCount("parser.matched-cards", int64(len(out)))
	return out
}

func (p Parser) parseCard(card *goquery.Selection, filter Filter, now time.Time) (EventRecord, bool, error) {
	name, err := p.schema.CardName(card)
	if err != nil {
		return EventRecord{}, false, err
	}
	if filter.Name != "" && name != filter.Name {
		return EventRecord{}, false, nil
	}

	details, err := p.schema.CardDetails(card)
	if err != nil {
		return EventRecord{}, false, fmt.Errorf("%s: %w", name, err)
	}
	if filter.Location != "" && details.Location != filter.Location {
		return EventRecord{}, false, nil
	}
	if filter.Date != "" && dateTokenRegex.FindString(details.EventDate) != filter.Date {
		return EventRecord{}, false, nil
	}

	return EventRecord{
		Name:              name,
		Location:          details.Location,
		EventDate:         details.EventDate,
		RegistrationStart: details.RegistrationStart,
		RegistrationEnd:   details.RegistrationEnd,
		Status:            details.Status,
		LastChecked:       now,
	}, true, nil
}

// Names lists the name of every card on the page in order.
func (p Parser) Names(markup string) []string {
	doc, ok := p.document(markup)
	if !ok {
		return nil
	}
	var names []string
	doc.Find(p.schema.CardSelector()).Each(func(_ int, card *goquery.Selection) {
		name, err := p.schema.CardName(card)
		if err == nil {
			names = append(names, name)
		}
	})
	return names
}
