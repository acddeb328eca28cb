package memo

// Action names understood by the webhook.
type Action string

const (
	ActionAddMemo  Action = "addMemo"
	ActionGetMemos Action = "getMemos"
)

// Record is a vocabulary entry. Example and Memo are always sent, empty when unset.
type Record struct {
	Word    string `json:"word" validate:"required"`
	Meaning string `json:"meaning" validate:"required"`
	Example string `json:"example"`
	Memo    string `json:"memo"`
}

// Envelope is the body POSTed to the webhook.
type Envelope struct {
	Action Action  `json:"action"`
	Data   *Record `json:"data,omitempty"`
}

func AddMemoEnvelope(rec Record) Envelope {
	return Envelope{Action: ActionAddMemo, Data: &rec}
}

func GetMemosEnvelope() Envelope {
	return Envelope{Action: ActionGetMemos}
}
