package catalog

import "slices"

// Role is the context a person appears in. It is not stored on the person row.
type Role string

const (
	RoleComposer Role = "composer"
	RoleEditor   Role = "editor"
)

// Person is a composer or editor. Born and Died are nil when unknown.
type Person struct {
	Name string `json:"name" yaml:"name"`
	Born *int   `json:"born,omitempty" yaml:"born,omitempty"`
	Died *int   `json:"died,omitempty" yaml:"died,omitempty"`
	Role Role   `json:"-" yaml:"-"`
}

// Merge fills unknown years from other. Known years are never overwritten.
func (p Person) Merge(other Person) Person {
	if p.Born == nil {
		p.Born = other.Born
	}
	if p.Died == nil {
		p.Died = other.Died
	}
	return p
}

// Voice is one part of a composition. Empty strings mean absent.
type Voice struct {
	Number int    `json:"number" yaml:"number"`
	Range  string `json:"range,omitempty" yaml:"range,omitempty"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Composition is the abstract musical work (the "score" table).
type Composition struct {
	Name      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Incipit   string   `json:"incipit,omitempty" yaml:"incipit,omitempty"`
	Key       string   `json:"key,omitempty" yaml:"key,omitempty"`
	Genre     string   `json:"genre,omitempty" yaml:"genre,omitempty"`
	Year      *int     `json:"year,omitempty" yaml:"year,omitempty"`
	Voices    []Voice  `json:"voices,omitempty" yaml:"voices,omitempty"`
	Composers []Person `json:"composers,omitempty" yaml:"composers,omitempty"`
}

// FirstVoice returns the first voice, if any.
func (c Composition) FirstVoice() (Voice, bool) {
	if len(c.Voices) == 0 {
		return Voice{}, false
	}
	return c.Voices[0], true
}

// FirstComposer returns the first composer, if any.
func (c Composition) FirstComposer() (Person, bool) {
	if len(c.Composers) == 0 {
		return Person{}, false
	}
	return c.Composers[0], true
}

func (c Composition) withVoice(v Voice) Composition {
	v.Number = len(c.Voices) + 1
	c.Voices = append(slices.Clip(c.Voices), v)
	return c
}

func (c Composition) withComposers(people []Person) Composition {
	c.Composers = append(slices.Clip(c.Composers), people...)
	return c
}

// Edition is a published presentation of a composition.
type Edition struct {
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Composition Composition `json:"composition" yaml:"composition"`
	Editors     []Person    `json:"editors,omitempty" yaml:"editors,omitempty"`
}

func (e Edition) withEditors(people []Person) Edition {
	e.Editors = append(slices.Clip(e.Editors), people...)
	return e
}

// Partiture is a tri-state flag: yes, no or unknown.
type Partiture int8

const (
	PartitureUnknown Partiture = iota
	PartitureYes
	PartitureNo
)

// Code returns the single-character storage code. Unknown is stored as "N".
func (p Partiture) Code() string {
	if p == PartitureYes {
		return "Y"
	}
	return "N"
}

// String returns the catalog spelling, or "" when unknown.
func (p Partiture) String() string {
	switch p {
	case PartitureYes:
		return "yes"
	case PartitureNo:
		return "no"
	default:
		return ""
	}
}

func (p Partiture) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Print is one physical publication, identified by an externally assigned id.
type Print struct {
	ID        int       `json:"id" yaml:"id"`
	Edition   Edition   `json:"edition" yaml:"edition"`
	Partiture Partiture `json:"partiture,omitempty" yaml:"partiture,omitempty"`
}

// Composition is a shorthand for p.Edition.Composition.
func (p Print) Composition() Composition {
	return p.Edition.Composition
}
