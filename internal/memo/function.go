package memo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFunction = errors.New("unsupported function")
	ErrMalformedArguments  = errors.New("malformed function arguments")
)

// FunctionCall is a validated function-call decision, one variant per callable function.
type FunctionCall interface {
	Name() string
	Envelope() Envelope
}

// AddMemoCall appends Record to the sheet.
type AddMemoCall struct {
	Record Record
}

func (AddMemoCall) Name() string { return string(ActionAddMemo) }

func (c AddMemoCall) Envelope() Envelope { return AddMemoEnvelope(c.Record) }

// GetMemosCall lists stored records.
type GetMemosCall struct{}

func (GetMemosCall) Name() string { return string(ActionGetMemos) }

func (GetMemosCall) Envelope() Envelope { return GetMemosEnvelope() }

// ParseFunctionCall turns a function name and its JSON argument blob into a
// FunctionCall. Arguments are decoded before the name is checked, so an
// unparseable blob is reported as malformed whatever the name.
func ParseFunctionCall(name, arguments string) (FunctionCall, error) {
	raw := strings.TrimSpace(arguments)
	if raw == "" {
		raw = "{}"
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}

	switch Action(name) {
	case ActionAddMemo:
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
		}
		return AddMemoCall{Record: rec}, nil
	case ActionGetMemos:
		return GetMemosCall{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFunction, name)
	}
}
