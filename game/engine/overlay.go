package engine

import (
	"encoding/json"
	"fmt"
)

// MapOverlay owns the live entities of one named map. Destroyed entities
// stay in the list but are invisible to every spatial query.
type MapOverlay struct {
	mapName  string
	entities []MapEntity
	bestiary *Bestiary
}

// NewMapOverlay creates an overlay. The bestiary is used to hydrate monsters
// on Deserialize; nil means DefaultBestiary.
func NewMapOverlay(mapName string, bestiary *Bestiary, entities ...MapEntity) *MapOverlay {
	if bestiary == nil {
		bestiary = DefaultBestiary()
	}
	return &MapOverlay{
		mapName:  mapName,
		entities: append([]MapEntity(nil), entities...),
		bestiary: bestiary,
	}
}

// MapName returns the name of the map this overlay belongs to
func (o *MapOverlay) MapName() string {
	return o.mapName
}

// EntityAt returns the first live entity at coord, or nil
func (o *MapOverlay) EntityAt(coord MapCoordinate) MapEntity {
	for _, e := range o.entities {
		b := e.Base()
		if !b.Destroyed && b.Position.Equals(coord) {
			return e
		}
	}
	return nil
}

// EntitiesInRect returns the live entities inside the inclusive box, in
// insertion order
func (o *MapOverlay) EntitiesInRect(topLeft, bottomRight MapCoordinate) []MapEntity {
	var out []MapEntity
	for _, e := range o.entities {
		b := e.Base()
		if !b.Destroyed && b.Position.Within(topLeft, bottomRight) {
			out = append(out, e)
		}
	}
	return out
}

// Monsters returns the live monsters inside the inclusive box
func (o *MapOverlay) Monsters(topLeft, bottomRight MapCoordinate) []*Monster {
	var out []*Monster
	for _, e := range o.EntitiesInRect(topLeft, bottomRight) {
		switch v := e.(type) {
		case *Monster:
			out = append(out, v)
		case *Vehicle:
		}
	}
	return out
}

// Add appends an entity
func (o *MapOverlay) Add(e MapEntity) {
	o.entities = append(o.entities, e)
}

// Entities returns every entity, destroyed ones included
func (o *MapOverlay) Entities() []MapEntity {
	return append([]MapEntity(nil), o.entities...)
}

// Find returns the entity with the given id, destroyed or not
func (o *MapOverlay) Find(id string) MapEntity {
	for _, e := range o.entities {
		if e.Base().ID == id {
			return e
		}
	}
	return nil
}

type overlayDocument struct {
	Entities []json.RawMessage `json:"entities"`
}

func (o *MapOverlay) SaveID() string {
	return o.mapName + "-mapOverlay"
}

func (o *MapOverlay) Serialize() (string, error) {
	doc := struct {
		Entities []MapEntity `json:"entities"`
	}{Entities: o.entities}
	if doc.Entities == nil {
		doc.Entities = []MapEntity{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal overlay %s: %w", o.mapName, err)
	}
	return string(data), nil
}

// Deserialize rebuilds every entity through its constructor. The overlay is
// only replaced when all entities decode.
func (o *MapOverlay) Deserialize(input string) error {
	var doc overlayDocument
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		return fmt.Errorf("failed to unmarshal overlay %s: %w", o.mapName, err)
	}

	entities := make([]MapEntity, 0, len(doc.Entities))
	for i, raw := range doc.Entities {
		var def EntityDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return fmt.Errorf("overlay %s entity %d: %w", o.mapName, i, err)
		}
		e, err := def.Hydrate(o.bestiary)
		if err != nil {
			return fmt.Errorf("overlay %s: %w", o.mapName, err)
		}
		entities = append(entities, e)
	}

	o.entities = entities
	return nil
}
