package view

import (
	"strconv"
	"strings"

	"studnet/internal/domain/profile"
)

// Card is the presentation of one profile.
type Card struct {
	ProfileID int64    `json:"profile_id"`
	UserID    int64    `json:"user_id"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Interests []string `json:"interests"`
	Goals     []string `json:"goals"`
	Photos    []string `json:"photos"`
}

func Present(p profile.Profile) Card {
	c := Card{
		ProfileID: p.ID,
		UserID:    p.UserID,
		Title:     title(p),
		Subtitle:  joinNonEmpty(" · ", p.City, p.University),
		Bio:       strings.TrimSpace(p.Bio),
		Interests: nonNil(p.Interests),
		Goals:     nonNil(p.Goals),
		Photos:    []string{},
	}
	if p.HasPhoto() {
		c.Photos = append(c.Photos, p.PhotoURL)
	}
	return c
}

func PresentAll(ps []profile.Profile) []Card {
	out := make([]Card, 0, len(ps))
	for _, p := range ps {
		out = append(out, Present(p))
	}
	return out
}

// Lines renders the card as plain text, one attribute per line.
func (c Card) Lines() []string {
	lines := []string{c.Title}
	if c.Subtitle != "" {
		lines = append(lines, c.Subtitle)
	}
	if c.Bio != "" {
		lines = append(lines, c.Bio)
	}
	if len(c.Interests) > 0 {
		lines = append(lines, "Interests: "+strings.Join(c.Interests, ", "))
	}
	if len(c.Goals) > 0 {
		lines = append(lines, "Goals: "+strings.Join(c.Goals, ", "))
	}
	return lines
}

func title(p profile.Profile) string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = joinNonEmpty(" ", p.FirstName, p.LastName)
	}
	if name == "" && p.Username != "" {
		name = "@" + p.Username
	}
	if name == "" {
		name = "Profile #" + strconv.FormatInt(p.ID, 10)
	}
	if p.Age > 0 {
		name += ", " + strconv.Itoa(p.Age)
	}
	return name
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
