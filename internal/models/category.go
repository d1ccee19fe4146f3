package models

import "time"

type Category struct {
	ID        string
	NameEn    string
	NameEl    string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LocalizedName picks the Greek name for "el" and the English one otherwise.
func (c Category) LocalizedName(lang string) string {
	if lang == "el" && c.NameEl != "" {
		return c.NameEl
	}
	return c.NameEn
}

type CategoryPatch struct {
	NameEn *string
	NameEl *string
	Slug   *string
}
