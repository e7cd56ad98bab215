package model

// Get the latest map snapshot RPC request.
type (
	GetMapRequest struct {
		// ClientID
		ClientId ClientId
		// Map address
		Bucket string
		Key    string
	}

	GetMapResponse struct {
		// Snapshot version
		Version int
		// Snapshot data (empty if map doesn't exist)
		Value MapValue
	}
)

// Update the map RPC request.
type (
	UpdateMapRequest struct {
		// Update source
		ClientId ClientId
		// Client snapshot version
		Version int
		// Map address
		Bucket string
		Key    string
		// Update operations
		Operations []Operation
	}

	UpdateMapResponse struct{}
)

// Delete the whole map RPC request.
type (
	DeleteMapRequest struct {
		ClientId ClientId
		Bucket   string
		Key      string
	}

	DeleteMapResponse struct{}
)

// Get snapshot update operations to bump local snapshot version.
type (
	GetMapUpdatesRequest struct {
		// Local snapshot version
		Version int
		// Map address
		Bucket string
		Key    string
	}

	GetMapUpdatesResponse struct {
		// Snapshot version
		Version int
		// Updates to apply in order to upgrade GetMapUpdatesRequest.Version to Version
		Updates []MapUpdate
	}
)

// Search schema RPC requests.
type (
	Schema struct {
		Name    string
		Content string
	}

	GetSchemaRequest struct {
		Name string
	}

	GetSchemaResponse struct {
		Schema Schema
	}

	CreateSchemaRequest struct {
		Schema Schema
	}

	CreateSchemaResponse struct{}
)
