package harness

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ValidateSchema checks a decoded scenario against the embedded CUE schema.
//
// The scenario is re-encoded as JSON (which is valid CUE), unified with
// #Scenario, and required to be concrete. A fresh cue.Context is used per
// call; contexts are not shared between goroutines.
func ValidateSchema(s *Scenario) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if !def.Exists() {
		return fmt.Errorf("compile schema: #Scenario not defined")
	}

	val := ctx.CompileBytes(data, cue.Filename("scenario.json"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("load scenario into cue: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
