package fieldspec

import (
	"fmt"
	"regexp"
	"strings"
)

// Validate checks a schema for structural problems. Every problem found is
// reported; the returned error is an *ErrorList or nil.
func Validate(schema *Schema) error {
	errs := NewErrorList()

	if schema == nil || schema.Root == nil {
		errs.AddError(ErrorTypeStructural, "", "schema has no root field", Location{})
		return errs.ToError()
	}

	if strings.TrimSpace(schema.FormatVersion) == "" {
		errs.AddErrorWithSuggestion(ErrorTypeStructural, "", "schema is missing formatVersion",
			schema.Root.Location, `add a top-level key such as formatVersion: "1.0"`)
	}

	schema.Root.Walk(func(path []string, f *Field) {
		validateField(errs, strings.Join(path, "."), f)
	})

	return errs.ToError()
}

// validateField checks one field in isolation plus its direct children's names.
func validateField(errs *ErrorList, path string, f *Field) {
	// Step 1: Identity
	if strings.TrimSpace(f.Name) == "" {
		errs.AddError(ErrorTypeStructural, path, "field has no name", f.Location)
	}

	if !f.Type.IsValid() {
		msg := fmt.Sprintf("unknown field type '%s'", f.Type)
		if f.Type == "" {
			msg = "field has no type"
		}
		errs.AddErrorWithSuggestion(ErrorTypeStructural, path, msg, f.Location, suggestKind(string(f.Type)))
		return
	}

	// Step 2: Occurrence bounds
	if f.MinOccurs < 0 {
		errs.AddError(ErrorTypeStructural, path,
			fmt.Sprintf("minOccurs must not be negative, got %d", f.MinOccurs), f.Location)
	}
	switch {
	case f.MaxOccurs == 0 || f.MaxOccurs < Unbounded:
		errs.AddErrorWithSuggestion(ErrorTypeStructural, path,
			fmt.Sprintf("maxOccurs must be positive or unbounded, got %d", f.MaxOccurs), f.Location,
			"use maxOccurs: unbounded for repeating fields")
	case f.MaxOccurs != Unbounded && f.MinOccurs > f.MaxOccurs:
		errs.AddError(ErrorTypeStructural, path,
			fmt.Sprintf("minOccurs (%d) exceeds maxOccurs (%d)", f.MinOccurs, f.MaxOccurs), f.Location)
	}

	// Step 3: Content nodes
	if f.IsContent() {
		validateContent(errs, path, f)
		return
	}

	if len(f.ContentModel) > 0 {
		errs.AddError(ErrorTypeStructural, path,
			fmt.Sprintf("%s field cannot have a contentModel", f.Type), f.Location)
	}
	if f.Flatten {
		errs.AddError(ErrorTypeStructural, path, "flatten applies only to content fields", f.Location)
	}

	// Step 4: Leaf matching configuration
	validateLeaf(errs, path, f)
}

func validateContent(errs *ErrorList, path string, f *Field) {
	if len(f.ContentModel) == 0 {
		errs.AddError(ErrorTypeStructural, path,
			fmt.Sprintf("%s field needs a non-empty contentModel", f.Type), f.Location)
		return
	}

	if f.Bare || f.Pattern != "" || f.ParseToken != "" {
		errs.AddError(ErrorTypeStructural, path,
			"content fields are matched through their children and take no bare/parseToken/pattern", f.Location)
	}

	seen := make(map[string]bool, len(f.ContentModel))
	for _, child := range f.ContentModel {
		if child.Name == "" || child.SkipOutput {
			continue
		}
		if seen[child.Name] {
			errs.AddError(ErrorTypeStructural, path+"."+child.Name,
				fmt.Sprintf("duplicate field name '%s' in %s", child.Name, path), child.Location)
		}
		seen[child.Name] = true
	}
}

func validateLeaf(errs *ErrorList, path string, f *Field) {
	if !f.Bare {
		if _, err := regexp.Compile("(?i)" + f.Token()); err != nil {
			errs.AddError(ErrorTypeStructural, path,
				fmt.Sprintf("invalid parseToken %q: %v", f.Token(), err), f.Location)
		}
	}

	groups := 0
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			errs.AddError(ErrorTypeStructural, path,
				fmt.Sprintf("invalid pattern %q: %v", f.Pattern, err), f.Location)
			return
		}
		groups = re.NumSubexp()
	}

	checkGroup := func(key string, group int) {
		if group < 0 {
			errs.AddError(ErrorTypeStructural, path,
				fmt.Sprintf("%s must not be negative, got %d", key, group), f.Location)
			return
		}
		if group > groups {
			errs.AddErrorWithSuggestion(ErrorTypeStructural, path,
				fmt.Sprintf("%s %d exceeds the %d capture group(s) of the pattern", key, group, groups),
				f.Location, "capture groups are numbered from 1; 0 means the whole match")
		}
	}
	checkGroup("matchGroup", f.MatchGroup)
	checkGroup("forPreviousMatchGroup", f.ForPreviousMatchGroup)
	checkGroup("forNextMatchGroup", f.ForNextMatchGroup)

	if !f.Bare && (f.ForPreviousMatchGroup > 0 || f.ForNextMatchGroup > 0) {
		errs.AddError(ErrorTypeStructural, path,
			"forPreviousMatchGroup and forNextMatchGroup require a bare field", f.Location)
	}

	switch f.Type {
	case KindEnum:
		if len(f.EnumValues) == 0 {
			errs.AddError(ErrorTypeStructural, path, "enumType field needs enumValues", f.Location)
		}
		for i, v := range f.EnumValues {
			if strings.TrimSpace(v) == "" {
				errs.AddError(ErrorTypeStructural, path,
					fmt.Sprintf("enumValues[%d] is empty", i), f.Location)
			}
		}
	case KindHeading:
		if f.Pattern == "" && strings.TrimSpace(f.Token()) == "" {
			errs.AddError(ErrorTypeStructural, path, "heading needs a parseToken or pattern", f.Location)
		}
	default:
		if len(f.EnumValues) > 0 {
			errs.AddError(ErrorTypeStructural, path,
				fmt.Sprintf("enumValues only apply to enumType fields, not %s", f.Type), f.Location)
		}
	}

	if f.Bare && f.Pattern == "" && f.Type != KindEnum && f.Type != KindAbility && f.Type != KindHeading {
		errs.AddErrorWithSuggestion(ErrorTypeStructural, path,
			"bare field has no pattern to decide its presence", f.Location,
			"add a pattern or give the field a parseToken")
	}
}
