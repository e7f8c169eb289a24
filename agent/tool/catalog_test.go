package tool

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

func TestToolInfosKeepsSpecOrder(t *testing.T) {
	t.Parallel()

	infos := ToolInfos([]contractx.ToolSpec{
		{Name: "getAvailableSlots", Description: "slots", Params: []contractx.ParamSpec{
			{Name: "date", Type: contractx.ParamString, Required: true},
			{Name: "durationMinutes", Type: contractx.ParamInteger, Default: 60},
		}},
		{Name: "sendBulkEmails", Description: "bulk", Params: []contractx.ParamSpec{
			{Name: "recipients", Type: contractx.ParamArray, Items: &contractx.ParamSpec{
				Type: contractx.ParamObject,
				Properties: []contractx.ParamSpec{
					{Name: "email", Type: contractx.ParamString, Required: true},
				},
			}},
		}},
		{Name: "noArgs", Description: "none"},
	})
	if len(infos) != 3 {
		t.Fatalf("expected 3 tool infos, got %d", len(infos))
	}
	if infos[0].Name != "getAvailableSlots" || infos[1].Name != "sendBulkEmails" || infos[2].Name != "noArgs" {
		t.Fatalf("unexpected order: %s, %s, %s", infos[0].Name, infos[1].Name, infos[2].Name)
	}
	if infos[2].ParamsOneOf != nil {
		t.Fatal("tool without params must not declare a schema")
	}
}

func TestParameterInfoNested(t *testing.T) {
	t.Parallel()

	info := parameterInfo(contractx.ParamSpec{
		Name: "recipients",
		Type: contractx.ParamArray,
		Items: &contractx.ParamSpec{
			Type: contractx.ParamObject,
			Properties: []contractx.ParamSpec{
				{Name: "email", Type: contractx.ParamString, Required: true},
				{Name: "name", Type: contractx.ParamString},
			},
		},
	})
	if info.Type != schema.Array {
		t.Fatalf("type = %s, want array", info.Type)
	}
	if info.ElemInfo == nil || info.ElemInfo.Type != schema.Object {
		t.Fatalf("unexpected elem info: %#v", info.ElemInfo)
	}
	if !info.ElemInfo.SubParams["email"].Required {
		t.Fatal("email sub-param must be required")
	}
}

func TestDescribeMentionsDefault(t *testing.T) {
	t.Parallel()

	got := describe(contractx.ParamSpec{Description: "Length in minutes.", Default: 60})
	if got != "Length in minutes. Defaults to 60." {
		t.Fatalf("describe() = %q", got)
	}
}

func TestJSONSchemaNestsArraysOfObjects(t *testing.T) {
	t.Parallel()

	got := JSONSchema(contractx.ToolSpec{Name: "sendBulkEmails", Params: []contractx.ParamSpec{
		{Name: "subjectTemplate", Type: contractx.ParamString, Required: true},
		{Name: "recipients", Type: contractx.ParamArray, Items: &contractx.ParamSpec{
			Type: contractx.ParamObject,
			Properties: []contractx.ParamSpec{
				{Name: "email", Type: contractx.ParamString, Required: true},
			},
		}},
		{Name: "sendToAllCustomers", Type: contractx.ParamBoolean, Default: false},
	}})

	if got["type"] != "object" {
		t.Fatalf("root must be an object schema, got %v", got["type"])
	}
	required, _ := got["required"].([]string)
	if len(required) != 1 || required[0] != "subjectTemplate" {
		t.Fatalf("unexpected required list: %v", got["required"])
	}
	props := got["properties"].(map[string]any)
	items := props["recipients"].(map[string]any)["items"].(map[string]any)
	if items["type"] != "object" {
		t.Fatalf("array items should be objects, got %v", items["type"])
	}
	if _, ok := items["properties"].(map[string]any)["email"]; !ok {
		t.Fatal("nested email property missing")
	}
	if props["sendToAllCustomers"].(map[string]any)["default"] != false {
		t.Fatal("default should be carried")
	}
}

func TestJSONSchemaWithoutParams(t *testing.T) {
	t.Parallel()

	got := JSONSchema(contractx.ToolSpec{Name: "noArgs"})
	if _, ok := got["required"]; ok {
		t.Fatal("required must be omitted when nothing is required")
	}
	if len(got["properties"].(map[string]any)) != 0 {
		t.Fatal("expected no properties")
	}
}
