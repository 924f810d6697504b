package model

import "time"

type Webinar struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CategoryID      *string   `json:"categoryId"`
	Host            string    `json:"host"`
	StartsAt        time.Time `json:"startsAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Capacity        int       `json:"capacity"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Category struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// WebinarFilter narrows a webinar listing. Zero values mean no filter.
type WebinarFilter struct {
	CategorySlug string
	After        *time.Time
	Limit        int
}
