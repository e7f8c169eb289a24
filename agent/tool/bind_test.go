package tool

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

type slotArgs struct {
	Date            string `json:"date" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=1,max=480"`
}

type sendArgs struct {
	ToEmail string `json:"toEmail" validate:"omitempty,email"`
}

var slotSpec = contractx.ToolSpec{
	Name: "getAvailableSlots",
	Params: []contractx.ParamSpec{
		{Name: "date", Type: contractx.ParamString, Required: true},
		{Name: "durationMinutes", Type: contractx.ParamInteger, Default: 60},
	},
}

func TestBindAppliesDefaults(t *testing.T) {
	t.Parallel()

	var in slotArgs
	if err := Bind(slotSpec, map[string]any{"date": "2024-01-15"}, &in); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if in.DurationMinutes != 60 {
		t.Fatalf("DurationMinutes = %d, want 60", in.DurationMinutes)
	}
}

func TestBindDecodesJSONNumbers(t *testing.T) {
	t.Parallel()

	var in slotArgs
	if err := Bind(slotSpec, map[string]any{"date": "2024-01-15", "durationMinutes": float64(30)}, &in); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if in.DurationMinutes != 30 {
		t.Fatalf("DurationMinutes = %d, want 30", in.DurationMinutes)
	}
}

func TestBindMissingRequired(t *testing.T) {
	t.Parallel()

	var in slotArgs
	err := Bind(slotSpec, map[string]any{"date": "  "}, &in)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	res := Invalid(err)
	if res.Failure == nil || res.Failure.Kind != contractx.FailureInvalidArguments {
		t.Fatalf("unexpected result: %#v", res)
	}
	if !strings.Contains(res.Failure.Message, "date") {
		t.Fatalf("message should name the parameter: %q", res.Failure.Message)
	}
}

func TestBindRunsValidatorTags(t *testing.T) {
	t.Parallel()

	spec := contractx.ToolSpec{Name: "x", Params: []contractx.ParamSpec{{Name: "toEmail", Type: contractx.ParamString}}}
	var in sendArgs
	err := Bind(spec, map[string]any{"toEmail": "not-an-address"}, &in)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "toEmail") {
		t.Fatalf("error should use the json field name: %v", err)
	}
}
