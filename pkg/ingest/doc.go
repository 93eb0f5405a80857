// Package ingest is the single entry point for turning statblock text into
// structured data.
//
// Service.Ingest takes the schema snapshot that is current at call time,
// normalizes the text, parses it, records metrics and a trace span, and
// optionally stores the outcome as a records.Record. Every run gets a UUID
// that appears in the logs (run_id), the span attributes and the stored
// record, and failed runs are stored as well as successful ones.
//
//	svc := ingest.New(registry,
//	    ingest.WithStore(store),
//	    ingest.WithMetrics(collector),
//	    ingest.WithParserConfig(cfg.Parser),
//	)
//	out, err := svc.Ingest(ctx, ingest.Request{Text: text, Source: "stdin", Persist: true})
package ingest
