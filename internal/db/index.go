package db

// StorageType selects the FT index storage backend.
type StorageType string

// Supported storage types.
const (
	StorageHash StorageType = "HASH"
)

// IndexFieldType enumerates FT schema field types.
type IndexFieldType string

// Supported field types.
const (
	IndexFieldTag     IndexFieldType = "TAG"
	IndexFieldText    IndexFieldType = "TEXT"
	IndexFieldNumeric IndexFieldType = "NUMERIC"
	IndexFieldVector  IndexFieldType = "VECTOR"
)

// VectorAlgo selects the ANN algorithm for a vector field.
type VectorAlgo string

// Supported vector algorithms.
const (
	VectorFlat VectorAlgo = "FLAT"
	VectorHNSW VectorAlgo = "HNSW"
)

// VectorDistance selects the distance metric for a vector field.
type VectorDistance string

// Supported distance metrics.
const (
	DistanceCosine VectorDistance = "COSINE"
	DistanceL2     VectorDistance = "L2"
)

// IndexDefinition describes an FT index to create.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// IndexField describes one FT schema field.
type IndexField struct {
	Name  string
	Alias string
	Type  IndexFieldType

	TagSeparator     string
	TagCaseSensitive bool

	VectorAlgo        VectorAlgo
	VectorDistance    VectorDistance
	VectorDim         int
	VectorM           int
	VectorEFConstruct int
}
