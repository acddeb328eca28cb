package assistant

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/ent0n29/vocabrelay/internal/memo"
)

// Tools is the fixed function-calling schema offered to the model.
func Tools() []openai.Tool {
	addMemo := openai.FunctionDefinition{
		Name:        string(memo.ActionAddMemo),
		Description: "Add a vocabulary memo to the Google Sheet",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"word":    {Type: jsonschema.String, Description: "The vocabulary word (required)"},
				"meaning": {Type: jsonschema.String, Description: "The meaning (required)"},
				"example": {Type: jsonschema.String, Description: "Example sentence (optional)"},
				"memo":    {Type: jsonschema.String, Description: "Extra note (optional)"},
			},
			Required: []string{"word", "meaning"},
		},
	}
	getMemos := openai.FunctionDefinition{
		Name:        string(memo.ActionGetMemos),
		Description: "Get memo list from the Google Sheet",
		Parameters: jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: map[string]jsonschema.Definition{},
		},
	}
	return []openai.Tool{
		{Type: openai.ToolTypeFunction, Function: &addMemo},
		{Type: openai.ToolTypeFunction, Function: &getMemos},
	}
}
