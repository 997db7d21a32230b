package models

import (
	"strings"
	"time"
)

type ItineraryDay struct {
	Day         int    `json:"day" yaml:"day" validate:"gte=1"`
	Title       string `json:"title" yaml:"title" validate:"notblank"`
	Description string `json:"description" yaml:"description"`
}

type Tour struct {
	ID           string         `json:"id"`
	Title        string         `json:"title" validate:"notblank"`
	Description  string         `json:"description" validate:"notblank"`
	Price        float64        `json:"price" validate:"gte=0"`
	Duration     int            `json:"duration" validate:"gte=1"`
	Location     string         `json:"location" validate:"notblank"`
	CategoryID   string         `json:"category" validate:"notblank"`
	CategoryName string         `json:"categoryName,omitempty"`
	Images       []string       `json:"images"`
	MaxGroupSize int            `json:"maxGroupSize" validate:"gte=1"`
	Difficulty   string         `json:"difficulty" validate:"oneof=easy medium hard"`
	Itinerary    []ItineraryDay `json:"itinerary" validate:"dive"`
	Included     []string       `json:"included"`
	Excluded     []string       `json:"excluded"`
	Rating       float64        `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount  int            `json:"reviewCount" validate:"gte=0"`
	Featured     bool           `json:"featured"`
	Available    bool           `json:"available"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Summary is the projection embedded into booking reads.
func (t *Tour) Summary() *TourSummary {
	return &TourSummary{
		ID:       t.ID,
		Title:    t.Title,
		Location: t.Location,
		Images:   t.Images,
		Duration: t.Duration,
	}
}

type TourSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Location string   `json:"location"`
	Images   []string `json:"images"`
	Duration int      `json:"duration"`
}

// TourInput is the create payload. Optional fields stay nil when absent so
// defaults can be told apart from explicit zero values.
type TourInput struct {
	Title        string         `json:"title" yaml:"title"`
	Description  string         `json:"description" yaml:"description"`
	Price        float64        `json:"price" yaml:"price"`
	Duration     int            `json:"duration" yaml:"duration"`
	Location     string         `json:"location" yaml:"location"`
	Category     string         `json:"category" yaml:"category"`
	Images       []string       `json:"images" yaml:"images"`
	MaxGroupSize int            `json:"maxGroupSize" yaml:"max_group_size"`
	Difficulty   string         `json:"difficulty" yaml:"difficulty"`
	Itinerary    []ItineraryDay `json:"itinerary" yaml:"itinerary"`
	Included     []string       `json:"included" yaml:"included"`
	Excluded     []string       `json:"excluded" yaml:"excluded"`
	Rating       *float64       `json:"rating" yaml:"rating"`
	ReviewCount  *int           `json:"reviewCount" yaml:"review_count"`
	Featured     *bool          `json:"featured" yaml:"featured"`
	Available    *bool          `json:"available" yaml:"available"`
}

// NewTour builds a tour from the input, applying catalog defaults.
func (in *TourInput) NewTour() *Tour {
	t := &Tour{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Price:        in.Price,
		Duration:     in.Duration,
		Location:     strings.TrimSpace(in.Location),
		CategoryID:   strings.TrimSpace(in.Category),
		Images:       nonNil(in.Images),
		MaxGroupSize: in.MaxGroupSize,
		Difficulty:   in.Difficulty,
		Itinerary:    in.Itinerary,
		Included:     nonNil(in.Included),
		Excluded:     nonNil(in.Excluded),
		Available:    true,
	}
	if t.Difficulty == "" {
		t.Difficulty = DifficultyMedium
	}
	if t.Itinerary == nil {
		t.Itinerary = []ItineraryDay{}
	}
	if in.Rating != nil {
		t.Rating = *in.Rating
	}
	if in.ReviewCount != nil {
		t.ReviewCount = *in.ReviewCount
	}
	if in.Featured != nil {
		t.Featured = *in.Featured
	}
	if in.Available != nil {
		t.Available = *in.Available
	}
	return t
}

// TourPatch carries a partial update; nil fields are left untouched.
type TourPatch struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Price        *float64        `json:"price"`
	Duration     *int            `json:"duration"`
	Location     *string         `json:"location"`
	Category     *string         `json:"category"`
	Images       *[]string       `json:"images"`
	MaxGroupSize *int            `json:"maxGroupSize"`
	Difficulty   *string         `json:"difficulty"`
	Itinerary    *[]ItineraryDay `json:"itinerary"`
	Included     *[]string       `json:"included"`
	Excluded     *[]string       `json:"excluded"`
	Rating       *float64        `json:"rating"`
	ReviewCount  *int            `json:"reviewCount"`
	Featured     *bool           `json:"featured"`
	Available    *bool           `json:"available"`
}

// Apply merges the patch into t and reports whether the category changed.
func (p *TourPatch) Apply(t *Tour) (categoryChanged bool) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Location != nil {
		t.Location = strings.TrimSpace(*p.Location)
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) != t.CategoryID {
		t.CategoryID = strings.TrimSpace(*p.Category)
		t.CategoryName = ""
		categoryChanged = true
	}
	if p.Images != nil {
		t.Images = nonNil(*p.Images)
	}
	if p.MaxGroupSize != nil {
		t.MaxGroupSize = *p.MaxGroupSize
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
	}
	if p.Itinerary != nil {
		t.Itinerary = *p.Itinerary
		if t.Itinerary == nil {
			t.Itinerary = []ItineraryDay{}
		}
	}
	if p.Included != nil {
		t.Included = nonNil(*p.Included)
	}
	if p.Excluded != nil {
		t.Excluded = nonNil(*p.Excluded)
	}
	if p.Rating != nil {
		t.Rating = *p.Rating
	}
	if p.ReviewCount != nil {
		t.ReviewCount = *p.ReviewCount
	}
	if p.Featured != nil {
		t.Featured = *p.Featured
	}
	if p.Available != nil {
		t.Available = *p.Available
	}
	return categoryChanged
}

// TourFilter narrows a catalog listing. Zero values mean "no constraint".
type TourFilter struct {
	Category string
	Location string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Featured *bool
}

// Keywords splits the search text into lowercase terms.
func (f TourFilter) Keywords() []string {
	fields := strings.Fields(strings.ToLower(f.Search))
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Matches evaluates the filter against a tour in memory.
func (f TourFilter) Matches(t *Tour) bool {
	if f.Category != "" && t.CategoryID != f.Category {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(t.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.MinPrice != nil && t.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && t.Price > *f.MaxPrice {
		return false
	}
	if f.Featured != nil && t.Featured != *f.Featured {
		return false
	}
	if kw := f.Keywords(); kw != nil {
		haystack := strings.ToLower(t.Title + "\n" + t.Location + "\n" + t.Description)
		found := false
		for _, k := range kw {
			if strings.Contains(haystack, k) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
