package scryfall

import (
	"errors"
	"fmt"
	"time"
)

// Card represents a Magic card from Scryfall.
// Bulk files carry the same shape with most fields slimmed away.
type Card struct {
	// Core fields
	ID          string `json:"id"`
	OracleID    string `json:"oracle_id,omitempty"`
	TCGPlayerID *int   `json:"tcgplayer_id,omitempty"`

	// Card details
	Name          string     `json:"name"`
	Lang          string     `json:"lang,omitempty"`
	Layout        string     `json:"layout,omitempty"`
	ImageURIs     *ImageURIs `json:"image_uris,omitempty"`
	ManaCost      string     `json:"mana_cost,omitempty"`
	CMC           float64    `json:"cmc,omitempty"`
	TypeLine      string     `json:"type_line"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity,omitempty"`

	// Print details
	SetCode         string `json:"set"`
	SetName         string `json:"set_name"`
	CollectorNumber string `json:"collector_number,omitempty"`
	Rarity          string `json:"rarity,omitempty"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`

	// Prices
	Prices Prices `json:"prices"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name      string     `json:"name"`
	ManaCost  string     `json:"mana_cost,omitempty"`
	TypeLine  string     `json:"type_line,omitempty"`
	Colors    []string   `json:"colors,omitempty"`
	ImageURIs *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small      string `json:"small,omitempty"`
	Normal     string `json:"normal,omitempty"`
	Large      string `json:"large,omitempty"`
	PNG        string `json:"png,omitempty"`
	ArtCrop    string `json:"art_crop,omitempty"`
	BorderCrop string `json:"border_crop,omitempty"`
}

// Prices represents the prices of a card in various currencies.
// Scryfall encodes prices as decimal strings and omits unknown ones.
type Prices struct {
	USD     *string `json:"usd,omitempty"`
	USDFoil *string `json:"usd_foil,omitempty"`
	EUR     *string `json:"eur,omitempty"`
	TIX     *string `json:"tix,omitempty"`
}

// Set represents a Magic set from Scryfall.
type Set struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	ReleasedAt string `json:"released_at,omitempty"`
	SetType    string `json:"set_type"`
	CardCount  int    `json:"card_count"`
	Digital    bool   `json:"digital"`
}

// SetList represents a list of sets from Scryfall.
type SetList struct {
	Object  string `json:"object"`
	HasMore bool   `json:"has_more"`
	Data    []Set  `json:"data"`
}

// SearchResult represents search results from Scryfall.
type SearchResult struct {
	Object     string `json:"object"`
	TotalCards int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	NextPage   string `json:"next_page,omitempty"`
	Data       []Card `json:"data"`
}

// Catalog is a list of strings, as returned by the autocomplete endpoint.
type Catalog struct {
	Object      string   `json:"object"`
	TotalValues int      `json:"total_values"`
	Data        []string `json:"data"`
}

// BulkDataList represents the list of bulk data files.
type BulkDataList struct {
	Object  string     `json:"object"`
	HasMore bool       `json:"has_more"`
	Data    []BulkData `json:"data"`
}

// BulkData represents a bulk data file download.
type BulkData struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	UpdatedAt       time.Time `json:"updated_at"`
	Name            string    `json:"name"`
	CompressedSize  int       `json:"compressed_size"`
	DownloadURI     string    `json:"download_uri"`
	ContentType     string    `json:"content_type"`
	ContentEncoding string    `json:"content_encoding"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
