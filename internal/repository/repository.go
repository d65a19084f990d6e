// Package repository holds data access abstractions. Implementations live in subpackages.
package repository

import (
	"encoding/json"

	"claimflow/internal/model"
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

// DocumentFilter narrows a document listing. An empty Status matches all.
type DocumentFilter struct {
	Status model.DocumentStatus
	PageQuery
}

// StatusPatch carries the columns written together with a status change.
// Empty fields leave the stored value untouched.
type StatusPatch struct {
	Reason           string
	PassengerName    string
	FlightNumber     string
	ExtractedData    json.RawMessage
	ValidationResult json.RawMessage
	AnalysisResult   json.RawMessage
}
