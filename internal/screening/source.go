package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileSource reads watchlists from JSON array files. An empty path yields an empty list.
type FileSource struct {
	SanctionsPath string
	PEPPath       string
}

// SanctionsEntries reads the sanctions list file
func (f FileSource) SanctionsEntries(context.Context) ([]SanctionsEntry, error) {
	var entries []SanctionsEntry
	if err := readJSONList(f.SanctionsPath, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PEPEntries reads the PEP list file
func (f FileSource) PEPEntries(context.Context) ([]PEPEntry, error) {
	var entries []PEPEntry
	if err := readJSONList(f.PEPPath, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func readJSONList(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// StaticSource serves fixed lists
type StaticSource struct {
	Sanctions []SanctionsEntry
	PEPs      []PEPEntry
}

// SanctionsEntries returns the configured sanctions entries
func (s StaticSource) SanctionsEntries(context.Context) ([]SanctionsEntry, error) {
	return s.Sanctions, nil
}

// PEPEntries returns the configured PEP entries
func (s StaticSource) PEPEntries(context.Context) ([]PEPEntry, error) {
	return s.PEPs, nil
}
