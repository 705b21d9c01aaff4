// internal/workers/dream/interpret-brief/models.go
package interpretbrief

import "dreamforge-workers/internal/dream/brief"

type Input struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

type Output struct {
	Brief              brief.Brief `json:"brief"`
	Language           string      `json:"language"`
	NeedsClarification bool        `json:"needsClarification"`
}
