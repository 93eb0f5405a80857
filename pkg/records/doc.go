// Package records persists the outcome of statblock parses.
//
// Every ingest run can be saved as a Record: the parser output on success,
// or the status and error text on failure, along with the schema version
// that produced it and a hash of the input. Records are stored through the
// Storage interface; package storage provides an in-memory backend and a
// SQLite backend, and package retention prunes old records on a cron
// schedule.
//
// # Querying
//
//	q := &records.Query{Status: records.StatusMissingContent, Limit: 20}
//	if err := records.ValidateQuery(q, cfg.Records.Query.MaxLimit); err != nil {
//	    return err
//	}
//	found, err := store.Query(ctx, q)
//
// Storage errors are *StorageError values; invalid queries are *QueryError
// values; Get reports unknown IDs with ErrRecordNotFound.
package records
