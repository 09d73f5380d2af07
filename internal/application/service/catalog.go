package service

import (
	"webpilot/internal/domain/entity"
)

// Definitions converts a fetched catalog into the provider-neutral tool
// definitions handed to the model backend, normalizing each schema on the way.
func Definitions(catalog *entity.ToolCatalog) []entity.ToolDefinition {
	tools := catalog.All()
	result := make([]entity.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		result = append(result, entity.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  NormalizeSchema(t.InputSchema),
		})
	}
	return result
}

// NormalizeSchema fills gaps automation servers commonly leave in their
// argument schemas: a missing top-level object type and properties with no
// declared type, which default to string. The input map is not mutated.
func NormalizeSchema(schema map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]interface{}{}
	}

	props, ok := out["properties"].(map[string]interface{})
	if !ok {
		return out
	}
	normalized := make(map[string]interface{}, len(props))
	for name, raw := range props {
		detail, ok := raw.(map[string]interface{})
		if !ok {
			normalized[name] = raw
			continue
		}
		if _, ok := detail["type"]; ok {
			normalized[name] = detail
			continue
		}
		clone := make(map[string]interface{}, len(detail)+1)
		for k, v := range detail {
			clone[k] = v
		}
		clone["type"] = "string"
		normalized[name] = clone
	}
	out["properties"] = normalized
	return out
}
