package model

import "encoding/json"

// Location is a detailing branch as served by the backend.
type Location struct {
	ID        int64   `json:"id"`
	City      string  `json:"city"`
	Branch    string  `json:"branch"`
	Address   string  `json:"address"`
	OpenTime  string  `json:"open_time"`  // HH:MM:SS
	CloseTime string  `json:"close_time"` // HH:MM:SS
	Image     *string `json:"image,omitempty"`
}

// Service is a bookable detailing package.
type Service struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Duration    int     `json:"duration"` // minutes
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// TimeSlot is one bookable start time on a given day.
type TimeSlot struct {
	Time string `json:"time"` // HH:MM:SS
}

// UnmarshalJSON accepts either a bare "HH:MM:SS" string or {"time": "..."}.
func (s *TimeSlot) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err == nil {
		s.Time = raw
		return nil
	}
	type plain TimeSlot
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = TimeSlot(p)
	return nil
}
