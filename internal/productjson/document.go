package productjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/windsurf-appimage/internal/domain/build"
)

// indent is the indentation of written documents.
const indent = "\t"

// errNotAnObject is returned when a document or patch is valid JSON but not an object.
var errNotAnObject = errors.New("JSON value is not an object")

// Patch maps top-level keys to their new raw JSON values.
type Patch map[string]json.RawMessage

// Document is a product.json loaded into memory.
type Document map[string]json.RawMessage

// DecodePatch reads one JSON object from r.
func DecodePatch(r io.Reader) (Patch, error) {
	fields, err := decodeObject(r)
	if err != nil {
		return nil, err
	}

	return Patch(fields), nil
}

// PatchFromValues marshals arbitrary Go values into a Patch.
func PatchFromValues(values map[string]any) (Patch, error) {
	patch := make(Patch, len(values))

	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal patch value %q: %w", key, err)
		}

		patch[key] = raw
	}

	return patch, nil
}

// Load reads the document at path.
func Load(path string) (Document, error) {
	//nolint:gosec // G304: path points inside the AppDir built by this run.
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, build.FileSystemError("open product json", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	fields, err := decodeObject(file)
	if err != nil {
		return nil, build.ParseError("decode product json", path, err)
	}

	return Document(fields), nil
}

// Apply overwrites the top-level keys present in patch.
func (d Document) Apply(patch Patch) {
	for key, value := range patch {
		d[key] = value
	}
}

// Delete removes keys; missing keys are ignored.
func (d Document) Delete(keys ...string) {
	for _, key := range keys {
		delete(d, key)
	}
}

// Marshal renders the document with sorted keys and tab indentation.
func (d Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(map[string]json.RawMessage(d), "", indent)
}

// Save writes the document to path, keeping the file mode when it exists.
func (d Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return build.ParseError("encode product json", path, err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	if err = os.WriteFile(filepath.Clean(path), data, mode); err != nil {
		return build.FileSystemError("write product json", path, err)
	}

	return nil
}

// ApplyFile loads path, applies patch, deletes the remove keys and writes it back.
// Applying the same patch again yields the same file.
func ApplyFile(path string, patch Patch, remove ...string) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}

	doc.Apply(patch)
	doc.Delete(remove...)

	return doc.Save(path)
}

// decodeObject reads exactly one JSON object.
func decodeObject(r io.Reader) (map[string]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotAnObject
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}

	return fields, nil
}
