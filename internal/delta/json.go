package delta

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireOp struct {
	Insert     json.RawMessage `json:"insert,omitempty"`
	Retain     int             `json:"retain,omitempty"`
	Delete     int             `json:"delete,omitempty"`
	Attributes AttributeMap    `json:"attributes,omitempty"`
}

var embedValue = json.RawMessage("1")

// MarshalJSON encodes the op as {"insert": "text" | 1} / {"retain": n} / {"delete": n}.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Attributes: o.Attributes}
	switch o.Kind() {
	case KindInsert:
		if o.Embed {
			w.Insert = embedValue
		} else {
			raw, err := json.Marshal(o.Insert)
			if err != nil {
				return nil, err
			}
			w.Insert = raw
		}
	case KindDelete:
		w.Delete = o.Delete
	default:
		w.Retain = o.Retain
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an op. Numeric attribute values decode as float64.
func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Op{Retain: w.Retain, Delete: w.Delete, Attributes: w.Attributes.Clone()}
	switch {
	case len(w.Insert) > 0 && w.Insert[0] == '"':
		if err := json.Unmarshal(w.Insert, &o.Insert); err != nil {
			return err
		}
	case len(w.Insert) > 0:
		var n float64
		if err := json.Unmarshal(w.Insert, &n); err != nil || n != 1 {
			return fmt.Errorf("%w: unsupported insert value %s", ErrInvalidOp, w.Insert)
		}
		o.Embed = true
	}
	if o.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOp, data)
	}
	return nil
}

// MarshalJSON encodes the delta as {"ops": [...]}.
func (d Delta) MarshalJSON() ([]byte, error) {
	ops := d.Ops
	if ops == nil {
		ops = []Op{}
	}
	return json.Marshal(struct {
		Ops []Op `json:"ops"`
	}{ops})
}

// UnmarshalJSON accepts both {"ops": [...]} and a bare op array.
func (d *Delta) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var ops []Op
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &ops); err != nil {
			return err
		}
	} else {
		var wrapped struct {
			Ops []Op `json:"ops"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		ops = wrapped.Ops
	}
	d.Ops = ops
	return nil
}

// Parse decodes a JSON delta.
func Parse(data []byte) (Delta, error) {
	var d Delta
	if err := json.Unmarshal(data, &d); err != nil {
		return Delta{}, fmt.Errorf("parse delta: %w", err)
	}
	return d, nil
}
