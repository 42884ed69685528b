package wmg

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusOpen Status = "open"
	StatusFull Status = "full"
)

// Label is how the site itself words the status.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "開放報名"
	case StatusFull:
		return "已額滿"
	}
	return string(s)
}

// EventRecord is one course card as it was seen at LastChecked.
type EventRecord struct {
	Name              string    `json:"name"`
	Location          string    `json:"location"`
	EventDate         string    `json:"event_date"`
	RegistrationStart string    `json:"registration_start"`
	RegistrationEnd   string    `json:"registration_end"`
	Status            Status    `json:"status"`
	LastChecked       time.Time `json:"last_checked"`
}

const LastCheckedLayout = "2006-01-02 15:04:05"

func (r EventRecord) MarshalJSON() ([]byte, error) {
	type plain EventRecord
	return json.Marshal(struct {
		plain
		LastChecked string `json:"last_checked"`
	}{
		plain:       plain(r),
		LastChecked: r.LastChecked.Format(LastCheckedLayout),
	})
}

// LoginStatus is the outcome of a login, failures never surface as errors.
type LoginStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Detail carries the underlying error of the last failed attempt.
	Detail       string `json:"detail,omitempty"`
	CookiesSaved bool   `json:"cookies_saved"`
	// Attempts is the number of fresh logins tried, zero when a saved
	// session was reused.
	Attempts int `json:"attempts"`
}
