package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/primevalsoup/workspace-gateway/internal/domain/errors"
)

// Params is the untyped parameter map at the dispatcher boundary.
// Handlers decode it into their own parameter structs.
type Params map[string]any

// validate is shared by all parameter decoding. Struct-level required is
// enabled so empty strings fail `validate:"required"` tags.
var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeParams decodes the untyped map into a handler's parameter struct and
// validates it. Missing or empty required fields yield INVALID_REQUEST
// naming the offending parameters.
func DecodeParams(p Params, dst any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return domainerrors.Wrap(domainerrors.CodeInvalidRequest, "Parameters are not serializable", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domainerrors.Wrap(domainerrors.CodeInvalidRequest,
			fmt.Sprintf("Malformed parameters: %v", err), err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, jsonFieldName(fe.Field()))
			}
			return domainerrors.Newf(domainerrors.CodeInvalidRequest,
				"Missing or invalid parameters: %s", strings.Join(fields, ", "))
		}
		return domainerrors.Wrap(domainerrors.CodeInvalidRequest, "Invalid parameters", err)
	}
	return nil
}

// jsonFieldName lowercases the first rune of a struct field name; parameter
// structs in this codebase use camelCase json tags that differ from the Go
// field only in that rune.
func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// ClampLimit normalizes an optional positive integer parameter into
// [1, max], applying def when n is zero or negative.
func ClampLimit(n, def, max int) int {
	if n <= 0 {
		n = def
	}
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	return n
}
