package emby

import (
	"bytes"
	"time"
)

// Timestamp layouts seen in Emby responses. The server emits seven fractional
// digits and occasionally omits the zone suffix.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

// Time wraps time.Time with tolerant decoding of Emby timestamps
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	var err error
	for _, layout := range timeLayouts {
		var parsed time.Time
		parsed, err = time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

// Library is an Emby virtual folder
type Library struct {
	ID   string `json:"ItemId"`
	Name string `json:"Name"`
}

// User is an Emby account
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// UserData carries the per-user watch state of an item
type UserData struct {
	LastPlayedDate   *Time   `json:"LastPlayedDate"`
	Played           bool    `json:"Played"`
	PlayedPercentage float64 `json:"PlayedPercentage"`
}

// Item is a movie, series or episode as returned by the Items endpoints
type Item struct {
	ID             string    `json:"Id"`
	Name           string    `json:"Name"`
	Type           string    `json:"Type"`
	Path           string    `json:"Path"`
	Overview       string    `json:"Overview"`
	DateCreated    *Time     `json:"DateCreated"`
	DateLastPlayed *Time     `json:"DateLastPlayed"`
	UserData       *UserData `json:"UserData"`
}

// itemsResponse is the envelope of the Items endpoints
type itemsResponse struct {
	Items []Item `json:"Items"`
}
