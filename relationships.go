package xlcore

import (
	"encoding/xml"
	"fmt"
)

// Relationship is a typed directed edge from one part to another, or to an
// external target.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	IsExternal bool
}

// xlsxRelationship and xlsxRelationships are the raw XML shape of a .rels
// part.
type xlsxRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type xlsxRelationships struct {
	XMLName       xml.Name           `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Relationships []xlsxRelationship `xml:"Relationship"`
}

// Relationships is keyed by id (unique) and grouped by type; insertion order
// is preserved for deterministic serialization.
type Relationships struct {
	order []string
	byID  map[string]Relationship
}

func newRelationships() *Relationships {
	return &Relationships{byID: make(map[string]Relationship)}
}

func parseRelationships(data []byte) (*Relationships, error) {
	var raw xlsxRelationships
	if err := decodeXML(data, &raw); err != nil {
		return nil, err
	}
	rels := newRelationships()
	for _, r := range raw.Relationships {
		rels.add(Relationship{
			ID:         r.ID,
			Type:       r.Type,
			Target:     r.Target,
			IsExternal: r.TargetMode == "External",
		})
	}
	return rels, nil
}

func (r *Relationships) add(rel Relationship) {
	if _, exists := r.byID[rel.ID]; !exists {
		r.order = append(r.order, rel.ID)
	}
	r.byID[rel.ID] = rel
}

// ByID returns the relationship with the given id, if any.
func (r *Relationships) ByID(id string) (Relationship, bool) {
	rel, ok := r.byID[id]
	return rel, ok
}

// ByType returns all relationships of the given type, in insertion order.
func (r *Relationships) ByType(typeURI string) []Relationship {
	var out []Relationship
	for _, id := range r.order {
		if rel := r.byID[id]; rel.Type == typeURI {
			out = append(out, rel)
		}
	}
	return out
}

// All returns every relationship, in insertion order.
func (r *Relationships) All() []Relationship {
	out := make([]Relationship, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Relationships) marshal() ([]byte, error) {
	raw := xlsxRelationships{}
	for _, id := range r.order {
		rel := r.byID[id]
		x := xlsxRelationship{ID: rel.ID, Type: rel.Type, Target: rel.Target}
		if rel.IsExternal {
			x.TargetMode = "External"
		}
		raw.Relationships = append(raw.Relationships, x)
	}
	return marshalXML(raw)
}

// relationshipIDCounter assigns monotonically increasing rId{n} identifiers.
// It does not inspect existing ids itself; advanceCounterPast moves it past
// an id assigned elsewhere.
type relationshipIDCounter struct {
	next int
}

func (c *relationshipIDCounter) nextID() string {
	c.next++
	return fmt.Sprintf("rId%d", c.next)
}
