// Package persist writes the two per-run save files spec.md §6 names:
// "<name>-facts.json" and "<name>-inventory.xml", mirroring
// original_source/lib/netconify/cmdo.py's _conf_save. encoding/json and
// encoding/xml are used as-is: no repo in the retrieval pack wires a
// third-party marshaling library for plain struct/tree serialization, so
// stdlib is the grounded choice here (see DESIGN.md).
package persist

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/console-bootstrap/netconify/facts"
)

// Save writes "<name>-facts.json" and "<name>-inventory.xml" under dir,
// unless noSave is set, in which case Save is a no-op (spec.md §6
// "savedir, no_save").
func Save(dir, name string, table *facts.Table, noSave bool) error {
	if noSave {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: creating %s: %w", dir, err)
	}

	if err := saveFacts(filepath.Join(dir, name+"-facts.json"), table); err != nil {
		return err
	}
	return saveInventory(filepath.Join(dir, name+"-inventory.xml"), table)
}

func saveFacts(path string, table *facts.Table) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshaling facts: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}

func saveInventory(path string, table *facts.Table) error {
	if table.Inventory == nil {
		return nil
	}
	data, err := xml.MarshalIndent(table.Inventory, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshaling inventory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist: writing %s: %w", path, err)
	}
	return nil
}
