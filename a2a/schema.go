package a2a

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// schemaCache memoizes compiled skill input schemas by their raw JSON bytes
// so a hot send_message path doesn't recompile the same schema every call,
// grounded on the teacher's pkg/config schemaCacheStore.
var schemaCache = struct {
	mu    sync.RWMutex
	byKey map[string]*gojsonschema.Schema
}{byKey: make(map[string]*gojsonschema.Schema)}

func compiledSchema(raw []byte) (*gojsonschema.Schema, error) {
	key := string(raw)
	schemaCache.mu.RLock()
	if s, ok := schemaCache.byKey[key]; ok {
		schemaCache.mu.RUnlock()
		return s, nil
	}
	schemaCache.mu.RUnlock()

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compiling input schema: %w", err)
	}

	schemaCache.mu.Lock()
	schemaCache.byKey[key] = schema
	schemaCache.mu.Unlock()
	return schema, nil
}

// ValidateDataPart checks a Part with Kind == PartKindData against a skill's
// declared AgentSkill.InputSchema. It is a no-op (nil, nil) when the skill
// declares no schema, since validation is an opt-in enrichment a skill
// author turns on by publishing one: data parts carry arbitrary structured
// JSON, and a schema is supplemental rather than required.
func ValidateDataPart(inputSchema []byte, part Part) error {
	if len(inputSchema) == 0 {
		return nil
	}
	if part.Kind != PartKindData {
		return NewInvalidArgsError("ValidateDataPart: part is not kind=data")
	}

	schema, err := compiledSchema(inputSchema)
	if err != nil {
		return NewInvalidArgsError(err.Error())
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(part.Data))
	if err != nil {
		return NewInvalidArgsError(fmt.Sprintf("validating data part: %v", err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return NewInvalidArgsError("data part does not match skill input schema: " + strings.Join(msgs, "; "))
	}
	return nil
}
