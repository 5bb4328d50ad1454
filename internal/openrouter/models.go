package openrouter

// Model is an entry of the built-in model catalogue.
type Model struct {
	ID   string
	Name string
}

// Models is the catalogue offered by the model picker, in display order.
// Any other OpenRouter model ID can still be configured by hand.
var Models = []Model{
	{ID: "anthropic/claude-3-opus", Name: "Claude 3 Opus"},
	{ID: "anthropic/claude-3-sonnet", Name: "Claude 3 Sonnet"},
	{ID: "anthropic/claude-3-haiku", Name: "Claude 3 Haiku"},
	{ID: "openai/gpt-4o", Name: "GPT-4o"},
	{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini"},
	{ID: "meta-llama/llama-3-70b-instruct", Name: "Llama 3 70B"},
	{ID: "google/gemini-2.5-pro-preview-03-25", Name: "Gemini 2.5 Pro Preview"},
	{ID: "google/gemini-2.5-flash-preview", Name: "Gemini 2.5 Flash Preview"},
}

// DefaultModel is the first catalogue entry.
var DefaultModel = Models[0].ID

// LookupModel returns the catalogue entry for id.
func LookupModel(id string) (Model, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// DisplayName returns the catalogue name for id, or id itself.
func DisplayName(id string) string {
	if m, ok := LookupModel(id); ok {
		return m.Name
	}
	return id
}

// NextModel returns the catalogue entry after id, wrapping around. Unknown
// IDs yield the first entry.
func NextModel(id string) string {
	return stepModel(id, 1)
}

// PrevModel returns the catalogue entry before id, wrapping around. Unknown
// IDs yield the last entry.
func PrevModel(id string) string {
	return stepModel(id, -1)
}

func stepModel(id string, step int) string {
	n := len(Models)
	for i, m := range Models {
		if m.ID == id {
			return Models[((i+step)%n+n)%n].ID
		}
	}
	if step > 0 {
		return Models[0].ID
	}
	return Models[n-1].ID
}
