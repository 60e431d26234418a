package model

import (
	"encoding/json"
	"fmt"
)

// Legacy question banks stored MCQ options in three shapes: a bare array
// of strings, an array of {id,text,image} objects, or a keyed object.
// NormalizeOptions converts any of them into the canonical keyed map once,
// at the ingestion boundary. The rest of the system never branches on shape.
func NormalizeOptions(raw json.RawMessage) (map[string]Option, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// Shape 1: ["text a", "text b", ...]
	var texts []string
	if err := json.Unmarshal(raw, &texts); err == nil {
		out := make(map[string]Option, len(texts))
		for i, t := range texts {
			out[choiceID(i)] = Option{Text: t}
		}
		return out, nil
	}

	// Shape 2: [{"id": "A", "text": "...", "image": "..."}, ...]
	var objects []struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal(raw, &objects); err == nil {
		out := make(map[string]Option, len(objects))
		for i, o := range objects {
			id := o.ID
			if id == "" {
				id = choiceID(i)
			}
			out[id] = Option{Text: o.Text, Image: o.Image}
		}
		return out, nil
	}

	// Shape 3: {"A": "text"} or {"A": {"text": "...", "image": "..."}}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("unrecognized options shape: %w", err)
	}
	out := make(map[string]Option, len(keyed))
	for id, v := range keyed {
		var text string
		if err := json.Unmarshal(v, &text); err == nil {
			out[id] = Option{Text: text}
			continue
		}
		var opt Option
		if err := json.Unmarshal(v, &opt); err != nil {
			return nil, fmt.Errorf("option %q: %w", id, err)
		}
		out[id] = opt
	}
	return out, nil
}

// choiceID maps a positional index to a stable choice identifier (A, B, ...).
func choiceID(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("A%d", i)
}
