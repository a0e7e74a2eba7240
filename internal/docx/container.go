package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Part names inside the OPC container that the pipeline touches.
const (
	MainPartName     = "word/document.xml"
	MainPartRelsName = "word/_rels/document.xml.rels"
)

// Package is a .docx container held in memory. Entries the pipeline
// does not rewrite are preserved byte for byte, in their original
// order.
type Package struct {
	entries []pkgEntry
}

type pkgEntry struct {
	name   string
	method uint16
	data   []byte
}

// OpenPackage reads a .docx file fully into memory.
func OpenPackage(path string) (*Package, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("docx: open %s: %w", path, err)
	}
	defer r.Close()

	p := &Package{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("docx: read entry %s: %w", f.Name, err)
		}
		p.entries = append(p.entries, pkgEntry{name: f.Name, method: f.Method, data: data})
	}
	return p, nil
}

// PartNames returns every entry name in container order.
func (p *Package) PartNames() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.name
	}
	return names
}

// Part returns the bytes of a named entry.
func (p *Package) Part(name string) ([]byte, bool) {
	for _, e := range p.entries {
		if e.name == name {
			return e.data, true
		}
	}
	return nil, false
}

// SetPart replaces an existing entry's contents. Replacing a part that
// does not exist is an error: redaction never introduces new parts.
func (p *Package) SetPart(name string, data []byte) error {
	for i := range p.entries {
		if p.entries[i].name == name {
			p.entries[i].data = data
			return nil
		}
	}
	return fmt.Errorf("docx: package has no part %s", name)
}

// Save writes the container to path, keeping entry order and
// compression methods from the source file.
func (p *Package) Save(path string) error {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range p.entries {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			return fmt.Errorf("docx: write entry %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return fmt.Errorf("docx: write entry %s: %w", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("docx: finalize package: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
