package inventory

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Litmus keeps its inventory, relative to the module root.
var DefaultPath = filepath.Join("spec", "fixtures", "litmus_inventory.yaml")

// ResolvePath turns the task's inventory parameter into a file path.
// An empty value means DefaultPath; an existing directory is treated as a
// module root and gets DefaultPath appended.
func ResolvePath(p string) string {
	if p == "" {
		return DefaultPath
	}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return filepath.Join(p, DefaultPath)
	}
	return p
}

// Load reads the inventory at path. A missing or blank file yields Default().
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, &Error{Kind: ErrMalformedInventory, Msg: fmt.Sprintf("reading %s: %v", path, err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), nil
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes an inventory document and checks its shape.
// Transport groups missing from the input are added empty.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, malformedf("parsing yaml: %v", err)
	}
	if doc.Groups == nil {
		return nil, malformedf("missing 'groups' key")
	}
	if doc.Version != Version {
		return nil, malformedf("unsupported version %d, want %d", doc.Version, Version)
	}

	seen := make(map[string]bool, len(doc.Groups))
	for i, g := range doc.Groups {
		if g.Name == "" {
			return nil, malformedf("group %d has no name", i)
		}
		if seen[g.Name] {
			return nil, malformedf("duplicate group %q", g.Name)
		}
		seen[g.Name] = true
		if g.Targets == nil {
			doc.Groups[i].Targets = []Target{}
		}
	}
	for _, name := range DefaultGroups {
		if !seen[name] {
			doc.Groups = append(doc.Groups, Group{Name: name, Targets: []Target{}})
		}
	}
	return &doc, nil
}

// Marshal encodes doc as YAML with two-space indentation.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes doc to path, replacing the file atomically so a harness reading
// concurrently never sees a partial document.
func Save(doc *Document, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding inventory: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
