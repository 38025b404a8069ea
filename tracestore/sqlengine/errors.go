package sqlengine

import "errors"

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrUnsupportedDialect is returned for a dialect other than postgres or sqlite3.
	ErrUnsupportedDialect = errors.New("unsupported sql dialect")

	// ErrInvalidBatchSize is returned when the insert batch size is not positive.
	ErrInvalidBatchSize = errors.New("insert batch size must be positive")

	// ErrInvalidLocator is returned when a trace locator is not a plain lowercase identifier.
	ErrInvalidLocator = errors.New("trace locator must match [a-z_][a-z0-9_]*")

	// ErrBuildingQueryFailed is returned when goqu cannot render a query.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingEventsFailed is returned when a read query fails in the database.
	ErrQueryingEventsFailed = errors.New("querying events failed")

	// ErrScanningDBRowFailed is returned when a result row cannot be scanned.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrDecodingEventFailed is returned when a scanned row is not a valid reduced event.
	ErrDecodingEventFailed = errors.New("decoding reduced event failed")

	// ErrWritingFailed is returned when a schema, catalog, event or trace write fails.
	ErrWritingFailed = errors.New("writing to the trace store failed")
)
