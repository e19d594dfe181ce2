package domain

import "time"

// Card is one decorated photo contribution attached to a board.
// ContentURL is empty until the decorated image upload completes.
type Card struct {
	ID         string    `json:"id"`
	Creator    *User     `json:"creator,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ContentURL string    `json:"content_url"`

	// BlurHash is a compact placeholder for the decorated image, computed
	// when the image is uploaded. Listing screens render it while the real
	// thumbnail resolves.
	BlurHash string `json:"blur_hash,omitempty"`
}

// Uploaded reports whether the card's decorated image has a durable URL.
func (c *Card) Uploaded() bool {
	return c.ContentURL != ""
}
