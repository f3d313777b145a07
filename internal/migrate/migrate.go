// Package migrate upgrades persisted snapshots from older schema versions
// to the current one. Transforms run as a linear chain over the raw JSON
// document so that a version-N loader never needs to understand version-N-1
// Go types. Unknown and future versions fail fast instead of guessing.
package migrate

import (
	"encoding/json"
	"fmt"

	"canvascore/pkg/domain"
)

// step upgrades the raw state document from one schema version to the next.
// Steps mutate the document in place.
type step func(state map[string]any) error

// steps[v] migrates schema version v to v+1.
var steps = map[int]step{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
}

// Apply upgrades a raw snapshot document from the given version to
// domain.CurrentSchemaVersion. The document's "state" object is transformed
// in place and "schema_version" is rewritten.
func Apply(doc map[string]any, from int) error {
	if from < 1 || from > domain.CurrentSchemaVersion {
		return domain.UnsupportedSchemaVersionError{Found: from, Current: domain.CurrentSchemaVersion}
	}
	state, ok := doc["state"].(map[string]any)
	if !ok {
		return fmt.Errorf("snapshot has no state object")
	}
	for v := from; v < domain.CurrentSchemaVersion; v++ {
		fn, ok := steps[v]
		if !ok {
			return domain.UnsupportedSchemaVersionError{Found: v, Current: domain.CurrentSchemaVersion}
		}
		if err := fn(state); err != nil {
			return fmt.Errorf("migrate v%d to v%d: %w", v, v+1, err)
		}
	}
	doc["schema_version"] = domain.CurrentSchemaVersion
	return nil
}

// Load parses raw snapshot bytes, migrates them to the current schema when
// needed, and decodes the result into typed form.
func Load(raw []byte) (domain.Snapshot, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	version := 0
	if v, ok := doc["schema_version"].(float64); ok {
		version = int(v)
	}
	if version != domain.CurrentSchemaVersion {
		if err := Apply(doc, version); err != nil {
			return domain.Snapshot{}, err
		}
	}
	migrated, err := json.Marshal(doc)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("re-encode snapshot: %w", err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(migrated, &snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode migrated snapshot: %w", err)
	}
	return snapshot, nil
}

// migrateV1ToV2 lifts the flat component array into the keyed tree form and
// wraps the bare theme name in a structured theme object.
func migrateV1ToV2(state map[string]any) error {
	if list, ok := state["components"].([]any); ok {
		nodes := make(map[string]any, len(list))
		var roots []any
		for _, item := range list {
			node, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("component entry is %T, want object", item)
			}
			id, _ := node["id"].(string)
			if id == "" {
				return fmt.Errorf("component entry missing id")
			}
			nodes[id] = node
			if node["parent_id"] == nil {
				roots = append(roots, id)
			}
		}
		if roots == nil {
			roots = []any{}
		}
		state["components"] = map[string]any{"roots": roots, "map": nodes}
	}
	if mode, ok := state["theme"].(string); ok {
		state["theme"] = map[string]any{"mode": mode}
	}
	return nil
}

// migrateV2ToV3 renames abbreviated geometry keys, defaults panel
// visibility, and stamps project.updated_at.
func migrateV2ToV3(state map[string]any) error {
	if components, ok := state["components"].(map[string]any); ok {
		if nodes, ok := components["map"].(map[string]any); ok {
			for _, item := range nodes {
				node, ok := item.(map[string]any)
				if !ok {
					continue
				}
				geom, ok := node["geometry"].(map[string]any)
				if !ok {
					continue
				}
				if w, ok := geom["w"]; ok {
					geom["width"] = w
					delete(geom, "w")
				}
				if h, ok := geom["h"]; ok {
					geom["height"] = h
					delete(geom, "h")
				}
			}
		}
	}
	if panels, ok := state["panels"].(map[string]any); ok {
		for _, item := range panels {
			panel, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if _, present := panel["visible"]; !present {
				panel["visible"] = true
			}
		}
	}
	if project, ok := state["project"].(map[string]any); ok {
		if _, present := project["updated_at"]; !present {
			if created, ok := project["created_at"]; ok {
				project["updated_at"] = created
			}
		}
	}
	return nil
}
