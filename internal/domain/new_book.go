package domain

import (
	"strings"
)

// NewBook is the payload of the create-book form.
// String fields mirror the form inputs; the Book API accepts them as-is.
type NewBook struct {
	ID            string `json:"id" validate:"notblank" doc:"Catalog identifier"`
	Title         string `json:"title" validate:"notblank,max=500"`
	OriginalTitle string `json:"original_title,omitempty" validate:"max=500"`
	Authors       string `json:"authors" validate:"notblank,max=1000" doc:"Comma-separated author names"`
	ISBN13        string `json:"isbn13" validate:"notblank,isbn13"`
	Publication   string `json:"publication" validate:"notblank" doc:"Publication year"`
	Publisher     string `json:"publisher,omitempty" validate:"max=500"`
	Description   string `json:"description,omitempty" doc:"HTML or plain text; stored as Markdown"`
	ImageURL      string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// CreateBookPayload is what the Book API receives for a new entry.
type CreateBookPayload struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Authors       string  `json:"authors"`
	ISBN13        string  `json:"isbn13"`
	Publication   string  `json:"publication"`
	Publisher     string  `json:"publisher,omitempty"`
	Description   string  `json:"description,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	Ratings       Ratings `json:"ratings"`
	Icons         Icons   `json:"icons"`
}

// Payload applies the create-form defaults: original title falls back to
// title, icons fall back to the image URL or the placeholder, ratings start at zero.
func (n NewBook) Payload() CreateBookPayload {
	p := CreateBookPayload{
		ID:            strings.TrimSpace(n.ID),
		Title:         strings.TrimSpace(n.Title),
		OriginalTitle: strings.TrimSpace(n.OriginalTitle),
		Authors:       strings.TrimSpace(n.Authors),
		ISBN13:        strings.TrimSpace(n.ISBN13),
		Publication:   strings.TrimSpace(n.Publication),
		Publisher:     strings.TrimSpace(n.Publisher),
		Description:   n.Description,
		ImageURL:      strings.TrimSpace(n.ImageURL),
	}
	if p.OriginalTitle == "" {
		p.OriginalTitle = p.Title
	}
	icon := p.ImageURL
	if icon == "" {
		icon = PlaceholderIcon
	}
	p.Icons = Icons{Large: icon, Small: icon}
	return p
}
