// Statblock parses monster statblocks pasted as plain text into structured
// JSON, driven by a field schema.
//
// Usage:
//
//	# Parse a statblock file
//	statblock parse goblin.txt
//
//	# Parse from stdin with a custom schema, printing a readable tree
//	pbpaste | statblock parse --schema monster.yaml --format text
//
//	# Check a schema file
//	statblock lint --file monster.yaml
//
//	# Serve the HTTP API
//	statblock serve --config config.yaml
//
//	# List stored parse results
//	statblock records query --status missing_content
package main

func main() {
	Execute()
}
