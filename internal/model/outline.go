package model

// OutlineSection is one H2 block of the article outline
type OutlineSection struct {
	SectionID string   `json:"sectionId" validate:"required"`
	H2        string   `json:"h2" validate:"required"`
	H3        []string `json:"h3"`
}

// Outline is the heading skeleton of the article
type Outline struct {
	H1       string           `json:"h1" validate:"required"`
	IntroH2  string           `json:"introH2,omitempty"`
	Sections []OutlineSection `json:"sections" validate:"min=1,dive"`
}

// SectionIDs returns the section ids in outline order.
func (o *Outline) SectionIDs() []string {
	ids := make([]string, 0, len(o.Sections))
	for _, s := range o.Sections {
		ids = append(ids, s.SectionID)
	}
	return ids
}

// HasSection reports whether id names one of the outline sections.
func (o *Outline) HasSection(id string) bool {
	for _, s := range o.Sections {
		if s.SectionID == id {
			return true
		}
	}
	return false
}
