package tool

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Bind fills dst from args: declared defaults are applied, missing required
// parameters are rejected, then the struct is decoded and validated.
func Bind(spec contractx.ToolSpec, args map[string]any, dst any) error {
	merged := make(map[string]any, len(args)+len(spec.Params))
	for k, v := range args {
		merged[k] = v
	}

	var missing []string
	for _, p := range spec.Params {
		if !isBlank(merged[p.Name]) {
			continue
		}
		switch {
		case p.Default != nil:
			merged[p.Name] = p.Default
		case p.Required:
			missing = append(missing, p.Name)
		default:
			delete(merged, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required parameter(s): %s", contractx.ErrValidation, strings.Join(missing, ", "))
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(merged); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", contractx.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	return nil
}

// Invalid turns a binding error into an InvalidArguments failure.
func Invalid(err error) contractx.ToolResult {
	msg := strings.TrimPrefix(err.Error(), contractx.ErrValidation.Error()+": ")
	return contractx.Fail(contractx.FailureInvalidArguments, "%s", msg)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
