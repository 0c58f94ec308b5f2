package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultIndent is the number of spaces used when encoding documents.
const DefaultIndent = 2

// Decode parses a workflow document. Numbers are kept as json.Number and
// object key order is recorded, so content the sanitizer never touches is
// written back with the same text.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrInvalidJSON)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	order := make(keyOrder)
	v, err := readValue(dec, "", order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	// Trailing data after the first value is not JSON either.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrInvalidJSON)
	}

	root, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotWorkflow
	}
	return &Document{root: root, order: order}, nil
}

// Encode writes doc as indented JSON followed by a newline. Objects keep
// the key order they were decoded with.
func (d *Document) Encode(w io.Writer, indent int) error {
	var buf bytes.Buffer
	if err := d.order.writeValue(&buf, d.Raw(), ""); err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	out := buf.Bytes()
	if indent > 0 {
		var indented bytes.Buffer
		if err := json.Indent(&indented, out, "", strings.Repeat(" ", indent)); err != nil {
			return fmt.Errorf("failed to encode workflow: %w", err)
		}
		out = indented.Bytes()
	}
	out = append(out, '\n')

	_, err := w.Write(out)
	return err
}

// Load reads and decodes the document at path. Failures are returned as
// *LoadError wrapping ErrNotFound, ErrInvalidJSON or ErrNotWorkflow.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Path: path, Err: ErrNotFound}
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return doc, nil
}

// Save encodes doc to path. Parent directories are created, and the file is
// written to a temporary sibling first and renamed into place so a failure
// never leaves a partial output behind.
func Save(path string, doc *Document, indent int) error {
	var buf bytes.Buffer
	if err := doc.Encode(&buf, indent); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
