package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// keyOrder records the key order of every decoded object, addressed by its
// path from the root. Objects without an entry are written with sorted keys.
type keyOrder map[string][]string

const pathSep = "\x00"

func childPath(parent, key string) string {
	return parent + pathSep + key
}

// readValue decodes one JSON value from dec token by token, recording object
// key order into order.
func readValue(dec *json.Decoder, path string, order keyOrder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := make(map[string]any)
		var keys []string
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", kt)
			}
			val, err := readValue(dec, childPath(path, key), order)
			if err != nil {
				return nil, err
			}
			if _, dup := obj[key]; !dup {
				keys = append(keys, key)
			}
			obj[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		order[path] = keys
		return obj, nil

	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := readValue(dec, childPath(path, strconv.Itoa(len(arr))), order)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// keysOf returns m's keys in recorded order. Keys added after decoding
// follow in sorted order.
func (o keyOrder) keysOf(m map[string]any, path string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, k := range o[path] {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	var extra []string
	for k := range m {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}

// writeValue writes v as compact JSON without HTML escaping.
func (o keyOrder) writeValue(buf *bytes.Buffer, v any, path string) error {
	switch t := v.(type) {
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range o.keysOf(t, path) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := o.writeValue(buf, t[k], childPath(path, k)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := o.writeValue(buf, e, childPath(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeScalar(buf, v)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
