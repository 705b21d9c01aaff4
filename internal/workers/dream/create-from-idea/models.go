// internal/workers/dream/create-from-idea/models.go
package createfromidea

import (
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/dream/brief"
	"dreamforge-workers/internal/models"
)

type Input struct {
	UserID            string  `json:"userId"`
	Idea              string  `json:"idea"`
	ConversationTitle string  `json:"conversationTitle"`
	PriceCents        int     `json:"priceCents"`
	Upload            *Upload `json:"upload"`
}

// Upload is an optional user file carried inline as base64.
type Upload struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

type Uploaded struct {
	Key         *string `json:"key"`
	ContentType *string `json:"content_type"`
}

// Design is the generated asset package plus its presigned media.
type Design struct {
	assets.Output
	Media []models.Media `json:"media"`
}

type Output struct {
	ConversationID     string             `json:"conversationId"`
	Uploaded           Uploaded           `json:"uploaded"`
	Brief              brief.Brief        `json:"brief"`
	NeedsClarification bool               `json:"needsClarification"`
	Design             *Design            `json:"design"`
	IDs                *models.ListingIDs `json:"ids"`
	PriceCents         int                `json:"priceCents"`
	Currency           string             `json:"currency"`
	PreviewURL         *string            `json:"previewUrl"`
}
