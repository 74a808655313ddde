package engine

type Suggestion struct {
	ID       int
	Text     string
	Category string
}

var suggestions = []Suggestion{
	{ID: 1, Text: "What is the recommended tire pressure?", Category: "maintenance"},
	{ID: 2, Text: "How does the hybrid system work?", Category: "hybrid"},
	{ID: 3, Text: "What does the engine warning light mean?", Category: "diagnostic"},
	{ID: 4, Text: "How do I do an oil change?", Category: "maintenance"},
	{ID: 5, Text: "What is the trunk capacity?", Category: "specifications"},
	{ID: 6, Text: "How do I activate electric EV mode?", Category: "hybrid"},
	{ID: 7, Text: "When should the brake pads be replaced?", Category: "maintenance"},
	{ID: 8, Text: "How do I connect my phone over Bluetooth?", Category: "multimedia"},
}

// Suggestions returns the starter questions shown to new users.
func Suggestions() []Suggestion {
	return append([]Suggestion(nil), suggestions...)
}
