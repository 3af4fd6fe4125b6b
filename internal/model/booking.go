package model

import (
	"bytes"
	"encoding/json"
)

// FlexID is an identifier that Smoobu serializes sometimes as a JSON number
// and sometimes as a string, depending on the endpoint.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

func (f FlexID) IsZero() bool { return f == "" }

type Apartment struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
}

// Booking is the reservation record as delivered by Smoobu. It is owned by
// the platform and only ever read here.
type Booking struct {
	ID        FlexID    `json:"id"`
	Type      string    `json:"type"`
	GuestName string    `json:"guest-name"`
	Arrival   string    `json:"arrival"`
	Departure string    `json:"departure"`
	Phone     string    `json:"phone"`
	Language  string    `json:"language"`
	Apartment Apartment `json:"apartment"`
}

// GuestNameOrDefault mirrors the platform's habit of omitting guest names on
// channel-manager bookings.
func (b *Booking) GuestNameOrDefault() string {
	if b.GuestName == "" {
		return "Guest"
	}
	return b.GuestName
}

func (b *Booking) ApartmentName() string {
	if b.Apartment.Name == "" {
		return "your apartment"
	}
	return b.Apartment.Name
}
