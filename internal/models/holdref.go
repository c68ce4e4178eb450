package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// HoldRef points at a hold of a reference route either by 1-based index or by
// label. The encoded form is a bare number or a bare string.
type HoldRef struct {
	Index int
	Label string
}

// IndexRef returns a reference by 1-based index.
func IndexRef(i int) HoldRef { return HoldRef{Index: i} }

// LabelRef returns a reference by label.
func LabelRef(label string) HoldRef { return HoldRef{Label: label} }

// IsLabel reports whether the reference is by label.
func (r HoldRef) IsLabel() bool { return r.Label != "" }

func (r HoldRef) String() string {
	if r.IsLabel() {
		return strconv.Quote(r.Label)
	}
	return strconv.Itoa(r.Index)
}

func (r HoldRef) value() any {
	if r.IsLabel() {
		return r.Label
	}
	return r.Index
}

func (r *HoldRef) set(v any) error {
	switch t := v.(type) {
	case string:
		if t == "" {
			return fmt.Errorf("hold reference: empty label")
		}
		*r = HoldRef{Label: t}
	case float64:
		if t != float64(int(t)) {
			return fmt.Errorf("hold reference: %v is not an integer index", t)
		}
		*r = HoldRef{Index: int(t)}
	case int:
		*r = HoldRef{Index: t}
	case int8:
		*r = HoldRef{Index: int(t)}
	case int16:
		*r = HoldRef{Index: int(t)}
	case int32:
		*r = HoldRef{Index: int(t)}
	case int64:
		*r = HoldRef{Index: int(t)}
	case uint8:
		*r = HoldRef{Index: int(t)}
	case uint16:
		*r = HoldRef{Index: int(t)}
	case uint32:
		*r = HoldRef{Index: int(t)}
	case uint64:
		*r = HoldRef{Index: int(t)}
	default:
		return fmt.Errorf("hold reference: unsupported value %v (%T)", v, v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r HoldRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.value())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *HoldRef) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return r.set(v)
}

// MarshalYAML implements yaml.Marshaler.
func (r HoldRef) MarshalYAML() (interface{}, error) {
	return r.value(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *HoldRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("hold reference: line %d: expected a number or a label", node.Line)
	}
	if node.Tag == "!!int" {
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("hold reference: line %d: %w", node.Line, err)
		}
		return r.set(n)
	}
	return r.set(node.Value)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (r HoldRef) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(r.value())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (r *HoldRef) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	return r.set(v)
}
