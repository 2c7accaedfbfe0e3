package zarrio

import (
	"encoding/json"
	"testing"
)

// https://zarr.readthedocs.io/en/stable/spec/v2.html#metadata
const specExample = `{
  "chunks": [
    1000,
    1000
  ],
	"compressor": {
			"id": "blosc",
			"cname": "lz4",
			"clevel": 5,
			"shuffle": 1
	},
	"dtype": "<f8",
	"fill_value": "NaN",
	"order": "C",
	"shape": [
			10000,
			10000
	],
	"zarr_format": 2
}`

func TestMetadataSerialization(t *testing.T) {
	m := &ArrayMeta{}
	if err := json.Unmarshal([]byte(specExample), m); err != nil {
		t.Fatal(err)
	}

	if m.Dtype.String() != "<f8" {
		t.Errorf("dtype = %q, want %q", m.Dtype.String(), "<f8")
	}
	if m.Compressor.ID != "blosc" {
		t.Errorf("compressor.id = %q, want %q", m.Compressor.ID, "blosc")
	}
	if len(m.Chunks) != 2 || m.Chunks[0] != 1000 || m.Chunks[1] != 1000 {
		t.Errorf("chunks = %v, want [1000 1000]", m.Chunks)
	}
}

func TestArrayMetaSeparatorDefault(t *testing.T) {
	m := ArrayMeta{}
	if got := m.Separator(); got != "." {
		t.Errorf("default separator = %q, want %q", got, ".")
	}

	m.DimensionSeparator = "/"
	if got := m.Separator(); got != "/" {
		t.Errorf("separator = %q, want %q", got, "/")
	}
}
