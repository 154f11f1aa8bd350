package models

type Error struct {
	Status  int      `json:"status"`
	Error   []string `json:"error"`
	Message string   `json:"message,omitempty"`
}
