package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-bootstrap/netconify"
	"github.com/console-bootstrap/netconify/facts"
)

func TestSave_WritesFactsAndInventory(t *testing.T) {
	dir := t.TempDir()
	table := &facts.Table{
		Model:        "EX4300",
		SerialNumber: "AB1234",
		Inventory:    &netconify.XMLNode{},
	}

	err := Save(dir, "switch1", table, false)
	require.NoError(t, err)

	factsPath := filepath.Join(dir, "switch1-facts.json")
	data, err := os.ReadFile(factsPath)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "EX4300", decoded["Model"])
	_, hasInventory := decoded["Inventory"]
	assert.False(t, hasInventory, "Inventory must not be duplicated into facts.json")

	invPath := filepath.Join(dir, "switch1-inventory.xml")
	assert.FileExists(t, invPath)
}

func TestSave_NoSaveIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unwritten")
	err := Save(dir, "switch1", &facts.Table{}, true)
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSave_NilInventorySkipsInventoryFile(t *testing.T) {
	dir := t.TempDir()
	err := Save(dir, "switch1", &facts.Table{Model: "EX4300"}, false)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "switch1-facts.json"))
	assert.NoFileExists(t, filepath.Join(dir, "switch1-inventory.xml"))
}
