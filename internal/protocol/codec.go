package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Codec turns messages into wire frames and back.
type Codec interface {
	Name() string
	Encode(m Message) ([]byte, error)
	// Decode returns ErrUnknownType or ErrMalformed (wrapped) for frames
	// that must be dropped.
	Decode(frame []byte) (Message, error)
}

// NewCodec returns the codec registered under name ("json" or "cbor").
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return NewJSONCodec()
	case "cbor":
		return NewCBORCodec()
	default:
		return nil, fmt.Errorf("protocol: unknown codec %q", name)
	}
}

// ============================================================================
// JSON
// ============================================================================

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaSet  map[Type]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() (map[Type]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		set := make(map[Type]*jsonschema.Schema, len(Types))
		for _, t := range Types {
			raw, err := schemaFS.ReadFile("schemas/" + string(t) + ".json")
			if err != nil {
				schemaErr = fmt.Errorf("read schema %s: %w", t, err)
				return
			}
			url := "mem://protocol/" + string(t) + ".json"
			if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
				schemaErr = fmt.Errorf("add schema %s: %w", t, err)
				return
			}
			s, err := compiler.Compile(url)
			if err != nil {
				schemaErr = fmt.Errorf("compile schema %s: %w", t, err)
				return
			}
			set[t] = s
		}
		schemaSet = set
	})
	return schemaSet, schemaErr
}

// JSONCodec is the reference wire format: one flat JSON object per frame
// tagged by a "type" field. Inbound frames are checked against a JSON
// Schema per type before they are decoded.
type JSONCodec struct {
	schemas map[Type]*jsonschema.Schema
}

// NewJSONCodec compiles the embedded schemas.
func NewJSONCodec() (*JSONCodec, error) {
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &JSONCodec{schemas: s}, nil
}

func (c *JSONCodec) Name() string { return "json" }

// Encode writes {"type":...} followed by the message's own fields.
func (c *JSONCodec) Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + 24)
	buf.WriteString(`{"type":`)
	tag, _ := json.Marshal(string(m.Type()))
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func (c *JSONCodec) Decode(frame []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: frame is not an object", ErrMalformed)
	}
	tag, _ := obj["type"].(string)
	schema, known := c.schemas[Type(tag)]
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, malformed(Type(tag), "%v", err)
	}

	m, _ := newMessage(Type(tag))
	if err := json.Unmarshal(frame, m); err != nil {
		return nil, malformed(Type(tag), "%v", err)
	}
	msg := deref(m)
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ============================================================================
// CBOR
// ============================================================================

// cborFrame is the envelope of the binary codec. Field names of the body
// follow the JSON tags.
type cborFrame struct {
	Type Type            `cbor:"t"`
	Body cbor.RawMessage `cbor:"b,omitempty"`
}

// CBORCodec is a compact binary alternative to JSONCodec. Both peers of a
// match must use the same codec.
type CBORCodec struct {
	enc     cbor.EncMode
	dec     cbor.DecMode
	schemas map[Type]*jsonschema.Schema
}

func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := cbor.DecOptions{MaxArrayElements: 1024, MaxMapPairs: 64}.DecMode()
	if err != nil {
		return nil, err
	}
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &CBORCodec{enc: enc, dec: dec, schemas: s}, nil
}

func (c *CBORCodec) Name() string { return "cbor" }

func (c *CBORCodec) Encode(m Message) ([]byte, error) {
	body, err := c.enc.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return c.enc.Marshal(cborFrame{Type: m.Type(), Body: body})
}

func (c *CBORCodec) Decode(frame []byte) (Message, error) {
	var f cborFrame
	if err := c.dec.Unmarshal(frame, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	schema, known := c.schemas[f.Type]
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}

	// The body is checked against the JSON schemas so a frame with a missing
	// field is rejected instead of decoding to a zero value.
	doc := map[string]any{}
	if len(f.Body) > 0 {
		var raw any
		if err := c.dec.Unmarshal(f.Body, &raw); err != nil {
			return nil, malformed(f.Type, "%v", err)
		}
		v, err := jsonValue(raw)
		if err != nil {
			return nil, malformed(f.Type, "%v", err)
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, malformed(f.Type, "body is not a map")
		}
		doc = obj
	}
	doc["type"] = string(f.Type)
	if err := schema.Validate(doc); err != nil {
		return nil, malformed(f.Type, "%v", err)
	}

	m, _ := newMessage(f.Type)
	if len(f.Body) > 0 {
		if err := c.dec.Unmarshal(f.Body, m); err != nil {
			return nil, malformed(f.Type, "%v", err)
		}
	}
	msg := deref(m)
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// jsonValue converts a generic CBOR value into the shapes encoding/json
// produces, which is what the schema validator understands.
func jsonValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case uint64:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float32:
		return finiteNumber(float64(x))
	case float64:
		return finiteNumber(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ev, err := jsonValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", k)
			}
			ev, err := jsonValue(e)
			if err != nil {
				return nil, err
			}
			out[key] = ev
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ev, err := jsonValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

func finiteNumber(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return f, nil
}
