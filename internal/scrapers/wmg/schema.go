package wmg

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CardDetails is everything on a card apart from its name.
type CardDetails struct {
	Location          string
	EventDate         string
	RegistrationStart string
	RegistrationEnd   string
	Status            Status
}

// Schema knows how course cards are laid out in the listing markup.
type Schema interface {
	ID() string
	CardSelector() string
	CardName(card *goquery.Selection) (string, error)
	CardDetails(card *goquery.Selection) (CardDetails, error)
}

// SchemaByID returns the schema registered under id.
func SchemaByID(id string) (Schema, error) {
	switch id {
	case ActivityCardSchema{}.ID():
		return ActivityCardSchema{}, nil
	case LegacyCardSchema{}.ID():
		return LegacyCardSchema{}, nil
	}
	return nil, fmt.Errorf("unknown card schema %q", id)
}

func cleanText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// stripLabel drops a leading "label：" or "label:" from a row, colons
// inside values such as times are left alone.
func stripLabel(text string) string {
	if label, value, ok := strings.Cut(text, "："); ok && label != "" {
		return strings.TrimSpace(value)
	}
	if label, value, ok := strings.Cut(text, ":"); ok && !strings.ContainsAny(label, "0123456789") {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(text)
}

// ActivityCardSchema is the current listing layout:
//
//	<div class="activity-card">
//	  <h3>name</h3>
//	  <h4>location</h4> <h4>event date</h4>
//	  <h4>registration start</h4> <h4>registration end</h4>
//	  <span class="stateFull"></span>  (only when full)
//	</div>
type ActivityCardSchema struct{}

func (ActivityCardSchema) ID() string {
	return "activity-card"
}

func (ActivityCardSchema) CardSelector() string {
	return ".activity-card"
}

func (ActivityCardSchema) CardName(card *goquery.Selection) (string, error) {
	name := cleanText(card.Find("h3").First())
	if name == "" {
		return "", fmt.Errorf("card has no name heading")
	}
	return name, nil
}

func (ActivityCardSchema) CardDetails(card *goquery.Selection) (CardDetails, error) {
	rows := card.Find("h4")
	if rows.Length() < 4 {
		return CardDetails{}, fmt.Errorf("expected 4 info rows, got %d", rows.Length())
	}
	row := func(i int) string {
		return stripLabel(cleanText(rows.Eq(i)))
	}

	status := StatusOpen
	if card.Find(".stateFull").Length() > 0 {
		status = StatusFull
	}
	return CardDetails{
		Location:          row(0),
		EventDate:         row(1),
		RegistrationStart: row(2),
		RegistrationEnd:   row(3),
		Status:            status,
	}, nil
}

// LegacyCardSchema is the older layout, a `div.card` with an h2 name and
// labelled "label：value" rows. A card is open while it shows the
// registration button.
type LegacyCardSchema struct{}

const (
	legacyLabelLocation = "活動地點"
	legacyLabelDate     = "活動日期"
	legacyLabelRegStart = "報名開始日"
	legacyLabelRegEnd   = "報名截止日"
	legacyOpenButton    = "活動報名"
)

func (LegacyCardSchema) ID() string {
	return "card"
}

func (LegacyCardSchema) CardSelector() string {
	return "div.card"
}

func (LegacyCardSchema) CardName(card *goquery.Selection) (string, error) {
	name := cleanText(card.Find("h2").First())
	if name == "" {
		return "", fmt.Errorf("card has no name heading")
	}
	return name, nil
}

func (LegacyCardSchema) labelled(card *goquery.Selection, label string) (string, error) {
	var value string
	found := false
	card.Find("div").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find("div").Length() > 0 {
			return true
		}
		text := cleanText(row)
		if !strings.Contains(text, label) {
			return true
		}
		_, value, found = strings.Cut(text, "：")
		return !found
	})
	if !found {
		return "", fmt.Errorf("card has no %s row", label)
	}
	return strings.TrimSpace(value), nil
}

func (s LegacyCardSchema) CardDetails(card *goquery.Selection) (CardDetails, error) {
	var details CardDetails
	var err error
	for _, field := range []struct {
		label string
		dst   *string
	}{
		{label: legacyLabelLocation, dst: &details.Location},
		{label: legacyLabelDate, dst: &details.EventDate},
		{label: legacyLabelRegStart, dst: &details.RegistrationStart},
		{label: legacyLabelRegEnd, dst: &details.RegistrationEnd},
	} {
		*field.dst, err = s.labelled(card, field.label)
		if err != nil {
			return CardDetails{}, err
		}
	}

	details.Status = StatusFull
	button := card.Find("button.btn-primary")
	if button.Length() > 0 && strings.Contains(button.Text(), legacyOpenButton) {
		details.Status = StatusOpen
	}
	return details, nil
}
