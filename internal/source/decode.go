package source

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"vici-telegraf-plugin/internal/vici"
)

const maxResponseSize = 10 * 1024 * 1024 // 10 MB

// Format is the encoding a decoded vici record was serialized with.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case JSON, YAML, CBOR:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or cbor)", s)
}

var cborDecMode cbor.DecMode

func init() {
	var err error
	// Records have string keys only; any-typed targets must become
	// map[string]any, not map[interface{}]interface{}.
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("source: CBOR decoder initialization failed: " + err.Error())
	}
}

// Decode parses one record. A JSON document wrapped in an array, as some
// bridges send it, is unwrapped to its first element.
func Decode(data []byte, format Format) (vici.Record, error) {
	var rec vici.Record
	switch format {
	case JSON:
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '[' {
			var records []vici.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return nil, fmt.Errorf("parsing array response: %w", err)
			}
			if len(records) == 0 || records[0] == nil {
				return nil, fmt.Errorf("empty response array")
			}
			return records[0], nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
	case YAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		var err error
		if rec, err = yamlRecord(&doc); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
	case CBOR:
		if err := cborDecMode.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if rec == nil {
		return nil, fmt.Errorf("empty response")
	}
	return rec, nil
}

// ReadFile decodes the record stored at path; "-" reads standard input.
func ReadFile(path string, format Format) (vici.Record, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data, format)
}

type decoder interface {
	Decode(v any) error
}

// Stream decodes consecutive records from r and hands each to fn: newline
// delimited JSON, multi-document YAML or a CBOR sequence. It returns nil at
// end of input, or the first error of the decoder or of fn.
func Stream(r io.Reader, format Format, fn func(vici.Record) error) error {
	var dec decoder
	switch format {
	case JSON:
		dec = json.NewDecoder(r)
	case YAML:
		dec = yaml.NewDecoder(r)
	case CBOR:
		dec = cborDecMode.NewDecoder(r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	for {
		rec, err := next(dec, format)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decoding record: %w", err)
		}
		if rec == nil {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func next(dec decoder, format Format) (vici.Record, error) {
	if format == YAML {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
		return yamlRecord(&doc)
	}
	var rec vici.Record
	err := dec.Decode(&rec)
	return rec, err
}

// yamlRecord converts a YAML document into a record. Scalars keep their
// source text, so an unquoted 2 or yes is the string "2" or "yes", as on the
// wire. Null values are left out. An empty document gives a nil record.
func yamlRecord(doc *yaml.Node) (vici.Record, error) {
	n := doc
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nil
		}
		n = n.Content[0]
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	v, err := yamlValue(n)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("line %d: record is not a mapping", n.Line)
	}
	return vici.Record(m), nil
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.SequenceNode:
		l := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, val := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: non-scalar key", k.Line)
			}
			if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
				continue
			}
			v, err := yamlValue(val)
			if err != nil {
				return nil, err
			}
			m[k.Value] = v
		}
		return m, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// Pretty renders a raw reply for humans: indented JSON, YAML as sent, or CBOR
// in diagnostic notation. Input that does not parse is returned as is, or
// hex encoded for CBOR.
func Pretty(data []byte, format Format) string {
	switch format {
	case JSON:
		var out bytes.Buffer
		if err := json.Indent(&out, bytes.TrimSpace(data), "", "  "); err == nil {
			return out.String()
		}
	case CBOR:
		if diag, err := cbor.Diagnose(data); err == nil {
			return diag
		}
		return hex.EncodeToString(data)
	}
	return strings.TrimRight(string(data), "\n")
}
