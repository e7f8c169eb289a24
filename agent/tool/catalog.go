package tool

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

// ToolInfos converts registry specs into eino tool declarations for model
// binding. Order follows specs.
func ToolInfos(specs []contractx.ToolSpec) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(specs))
	for _, s := range specs {
		params := make(map[string]*schema.ParameterInfo, len(s.Params))
		for _, p := range s.Params {
			params[p.Name] = parameterInfo(p)
		}
		info := &schema.ToolInfo{
			Name: s.Name,
			Desc: s.Description,
		}
		if len(params) > 0 {
			info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
		}
		infos = append(infos, info)
	}
	return infos
}

func parameterInfo(p contractx.ParamSpec) *schema.ParameterInfo {
	info := &schema.ParameterInfo{
		Type:     dataType(p.Type),
		Desc:     describe(p),
		Required: p.Required,
		Enum:     append([]string(nil), p.Enum...),
	}
	if p.Items != nil {
		info.ElemInfo = parameterInfo(*p.Items)
	}
	if len(p.Properties) > 0 {
		info.SubParams = make(map[string]*schema.ParameterInfo, len(p.Properties))
		for _, sub := range p.Properties {
			info.SubParams[sub.Name] = parameterInfo(sub)
		}
	}
	return info
}

func describe(p contractx.ParamSpec) string {
	desc := strings.TrimSpace(p.Description)
	if p.Default == nil {
		return desc
	}
	if desc == "" {
		return fmt.Sprintf("Defaults to %v.", p.Default)
	}
	return fmt.Sprintf("%s. Defaults to %v.", strings.TrimRight(desc, "."), p.Default)
}

func dataType(t contractx.ParamType) schema.DataType {
	switch t {
	case contractx.ParamInteger:
		return schema.Integer
	case contractx.ParamNumber:
		return schema.Number
	case contractx.ParamBoolean:
		return schema.Boolean
	case contractx.ParamArray:
		return schema.Array
	case contractx.ParamObject:
		return schema.Object
	default:
		return schema.String
	}
}

// JSONSchema renders a spec's parameters as a JSON Schema object, the shape
// MCP clients expect for tool input.
func JSONSchema(s contractx.ToolSpec) map[string]any {
	return objectSchema(s.Params)
}

func objectSchema(params []contractx.ParamSpec) map[string]any {
	props := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		props[p.Name] = paramSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func paramSchema(p contractx.ParamSpec) map[string]any {
	var out map[string]any
	if p.Type == contractx.ParamObject {
		out = objectSchema(p.Properties)
	} else {
		out = map[string]any{"type": string(dataType(p.Type))}
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		out["description"] = desc
	}
	if p.Default != nil {
		out["default"] = p.Default
	}
	if len(p.Enum) > 0 {
		out["enum"] = append([]string(nil), p.Enum...)
	}
	if p.Items != nil {
		out["items"] = paramSchema(*p.Items)
	}
	return out
}
