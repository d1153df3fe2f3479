// Package production provides the integrations an actor needs outside of
// tests: checkpoint codecs, file and Redis persisters, a channel publisher
// for emitted values, and DOT/JSON export of definitions.
package production

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/actorchart/internal/core"
	"github.com/comalice/actorchart/internal/primitives"
)

// Codec serializes values for storage.
type Codec interface {
	// Name is the format name, also used as the file extension.
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

var (
	JSON Codec = jsonCodec{}
	YAML Codec = yamlCodec{}
)

// CodecFor returns the codec with the given name ("json" or "yaml").
func CodecFor(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// EncodeContext serializes c.
func EncodeContext(codec Codec, c primitives.Context) ([]byte, error) {
	data, err := codec.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%s encode context: %w", codec.Name(), err)
	}
	return data, nil
}

// DecodeContext reverses EncodeContext. Numbers are coerced back to the
// kinds declared by shape, and untyped whole numbers come back as int, so
// decoding what EncodeContext produced for a conforming context gives back
// an equal context. A nil shape accepts any keys.
func DecodeContext(codec Codec, data []byte, shape primitives.Shape) (primitives.Context, error) {
	var c map[string]any
	if err := codec.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%s decode context: %w", codec.Name(), err)
	}
	out, err := shape.Normalize(c)
	if err != nil {
		return nil, fmt.Errorf("%s decode context: %w", codec.Name(), err)
	}
	return out, nil
}

// encodeCheckpoint and decodeCheckpoint are shared by the persisters. The
// contexts inside a decoded checkpoint keep the decoder's numeric types
// until the actor normalizes them against its definition on restore.
func encodeCheckpoint(codec Codec, cp core.Checkpoint) ([]byte, error) {
	data, err := codec.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("%s encode checkpoint %q: %w", codec.Name(), cp.ActorID, err)
	}
	return data, nil
}

func decodeCheckpoint(codec Codec, data []byte) (core.Checkpoint, error) {
	var cp core.Checkpoint
	if err := codec.Unmarshal(data, &cp); err != nil {
		return core.Checkpoint{}, fmt.Errorf("%s decode checkpoint: %w", codec.Name(), err)
	}
	return cp, nil
}
