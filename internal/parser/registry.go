package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes route sets and configurations in one format.
type Codec interface {
	// Name returns the unique name of the codec.
	Name() string
	// ContentType returns the MIME type served and accepted for this format.
	ContentType() string
	// CanDecode reports whether the file name or MIME type belongs to this format.
	CanDecode(nameOrType string) bool
	Decode(data []byte, v any) error
	Encode(v any) ([]byte, error)
}

// Registry holds all available codecs and provides format detection.
type Registry struct {
	codecs []Codec
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		codecs: []Codec{
			yamlCodec{},
			jsonCodec{},
			msgpackCodec{},
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a new codec to the registry.
func (r *Registry) Register(c Codec) {
	r.codecs = append(r.codecs, c)
}

// FindCodec detects the codec for a file name or a Content-Type header value.
func (r *Registry) FindCodec(nameOrType string) (Codec, error) {
	for _, c := range r.codecs {
		if c.CanDecode(nameOrType) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no suitable codec found for: %s", nameOrType)
}

// GetCodecByName returns a codec by its name.
func (r *Registry) GetCodecByName(name string) (Codec, error) {
	name = strings.ToLower(name)
	for _, c := range r.codecs {
		if strings.ToLower(c.Name()) == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("codec not found: %s", name)
}

// matches checks a file extension or a media type against the given lists.
func matches(nameOrType string, exts []string, types []string) bool {
	ext := strings.ToLower(filepath.Ext(nameOrType))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	mt, _, err := mime.ParseMediaType(nameOrType)
	if err != nil {
		return false
	}
	for _, t := range types {
		if mt == t {
			return true
		}
	}
	return false
}

type yamlCodec struct{}

func (yamlCodec) Name() string        { return "yaml" }
func (yamlCodec) ContentType() string { return "application/yaml" }
func (yamlCodec) CanDecode(s string) bool {
	return matches(s, []string{".yaml", ".yml"},
		[]string{"application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml"})
}
func (yamlCodec) Decode(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
func (yamlCodec) Encode(v any) ([]byte, error) { return yaml.Marshal(v) }

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }
func (jsonCodec) CanDecode(s string) bool {
	return matches(s, []string{".json"}, []string{"application/json"})
}
func (jsonCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
func (jsonCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) ContentType() string { return "application/msgpack" }
func (msgpackCodec) CanDecode(s string) bool {
	return matches(s, []string{".msgpack", ".mpk"},
		[]string{"application/msgpack", "application/x-msgpack", "application/vnd.msgpack"})
}
func (msgpackCodec) Decode(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (msgpackCodec) Encode(v any) ([]byte, error)    { return msgpack.Marshal(v) }
