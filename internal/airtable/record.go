package airtable

import (
	"time"

	"github.com/araddon/dateparse"
)

// Record is one row of an Airtable table.
type Record struct {
	ID          string                 `json:"id,omitempty"`
	CreatedTime string                 `json:"createdTime,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
}

// Created returns the parsed creation time, or the zero time.
func (r Record) Created() time.Time {
	if r.CreatedTime == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(r.CreatedTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type writeRequest struct {
	Fields   map[string]interface{} `json:"fields"`
	Typecast bool                   `json:"typecast,omitempty"`
}
