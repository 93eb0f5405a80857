// Package fieldspec defines the declarative field schema that drives statblock
// parsing.
//
// A schema is a tree of Field descriptors. Content nodes (orderedContent,
// unorderedContent) group child fields; leaf nodes (string, enumType, number,
// ability, heading) describe how a value is recognised in free text and what
// type it converts to. The schema carries no behaviour: the statparse package
// compiles it into parser instances.
//
// # Schema Documents
//
// Schemas are written in YAML (JSON documents load as well). The document is
// the root field plus a formatVersion tag that is attached to every parse
// result:
//
//	formatVersion: "1.0"
//	name: monsters
//	type: orderedContent
//	maxOccurs: unbounded
//	contentModel:
//	  - name: name
//	    type: string
//	    bare: true
//	    pattern: ".+"
//	  - name: hp
//	    type: string
//	    parseToken: "hit points"
//	    pattern: '\d+(?:\s*\(.*\))?'
//
// # Loading
//
//	schema, err := fieldspec.Load("schemas/monster.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Default returns the built-in 5e monster schema. Load and LoadBytes run
// Validate before returning, so a returned schema always has compilable
// patterns and consistent occurrence bounds. Problems are reported together
// in an ErrorList with file/line/column locations.
package fieldspec
