package zarrio

// MetaType names one of the well-known Zarr v2 metadata keys.
type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name.
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store.
	MTArray MetaType = ".zarray"
	// MTGroup is the key for storing group definitions on an array store.
	MTGroup MetaType = ".zgroup"
)

// ArrayMeta is the ".zarray" metadata document for one chunked array.
//
// Each array requires essential configuration metadata to be stored,
// enabling correct interpretation of the stored data.
type ArrayMeta struct {
	// ZarrFormat is the version of the storage specification the array
	// store adheres to.
	ZarrFormat int `json:"zarr_format"`
	// Shape gives the length of each dimension of the array.
	Shape []int `json:"shape"`
	// Chunks gives the length of each dimension of a chunk of the array.
	// Every chunk within an array has this shape; the last chunk along
	// any axis is truncated to fit the array's Shape.
	Chunks []int `json:"chunks"`
	// Dtype is a NumPy-typestring-style data type, e.g. "<u2".
	Dtype Dtype `json:"dtype"`
	// Compressor identifies the primary compression codec, or a zero
	// value if chunks are stored uncompressed.
	Compressor CompressionMeta `json:"compressor"`
	// FillValue is the value returned for chunk regions never written.
	FillValue interface{} `json:"fill_value"`
	// Order is either "C" (row-major) or "F" (column-major).
	Order string `json:"order"`
	// Filters lists codec configurations applied before compression, or
	// nil if none apply.
	Filters []Filter `json:"filters"`
	// DimensionSeparator is "." or "/"; the default is ".".
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

// Separator returns the configured dimension separator, defaulting to ".".
func (a ArrayMeta) Separator() string {
	if a.DimensionSeparator == "" {
		return "."
	}
	return a.DimensionSeparator
}

type Filter struct {
	ID     string `json:"id"`
	Delta  string `json:"delta,omitempty"`
	Dtype  string `json:"dtype,omitempty"`
	AsType string `json:"astype,omitempty"`
}

// Group is the ".zgroup" metadata document.
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}

const (
	FillValueNaN              = "NaN"
	FillValueInfinity         = "Infinity"
	FillValueNegativeInfinity = "-Infinity"
)
