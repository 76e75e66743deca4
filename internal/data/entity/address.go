package entity

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Address accepts either a single free-form line or structured parts.
type Address struct {
	Line       string `json:"line,omitempty" bson:"line,omitempty"`
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Landmark   string `json:"landmark,omitempty" bson:"landmark,omitempty"`
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line) == "" && strings.TrimSpace(a.Street) == "" && strings.TrimSpace(a.City) == ""
}

// UnmarshalJSON takes "12 Green Lane" as well as {"street": "...", "city": "..."}.
func (a *Address) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var line string
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		*a = Address{Line: line}
		return nil
	}

	type plain Address
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Address(p)
	return nil
}
