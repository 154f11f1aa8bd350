package models

// Activity is a single audit entry. Filter.Fields are the indexed keywords.
type Activity struct {
	Message string
	Object  any
	Filter  LogFilter
}

type LogFilter struct {
	Fields    map[string]string `json:"fields"`
	Timestamp string            `json:"timestamp"`
}

type ActivityQueryParams struct {
	Action string `json:"action" validate:"omitempty,max=64"`
}
