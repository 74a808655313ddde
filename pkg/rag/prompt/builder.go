package prompt

import (
	"fmt"
	"strings"
)

// ManualBuilder builds the prompts sent to the generation provider for one
// session. Subject is the session label, e.g. "Toyota Auris 2015".
type ManualBuilder struct {
	subject  string
	question string
	context  string
}

func NewManualBuilder(subject, question string) *ManualBuilder {
	if strings.TrimSpace(subject) == "" {
		subject = "your vehicle"
	}
	return &ManualBuilder{subject: subject, question: question}
}

// WithContext attaches retrieved manual excerpts. Without it Build produces a
// general-knowledge prompt.
func (b *ManualBuilder) WithContext(context string) *ManualBuilder {
	b.context = context
	return b
}

func (b *ManualBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *ManualBuilder) grounded() bool {
	return b.context != ""
}

func (b *ManualBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if !b.grounded() {
		return
	}

	prompt.WriteString("<reference_material>\n")
	prompt.WriteString(b.context)
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *ManualBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString(fmt.Sprintf("You are an expert assistant for the vehicle %q.\n", b.subject))
	if b.grounded() {
		prompt.WriteString("Answer the owner's question using the excerpts of their documents given as reference material.\n")
	} else {
		prompt.WriteString("The owner's documents do not cover this question. Answer from your general automotive knowledge.\n")
	}
	prompt.WriteString("</task>\n\n")
}

func (b *ManualBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	if b.grounded() {
		prompt.WriteString("1. Base your answer on the reference material\n")
		prompt.WriteString("2. Cite the source file and page when you use an excerpt\n")
		prompt.WriteString("3. If the material only partly answers the question, say which part comes from general knowledge\n")
	} else {
		prompt.WriteString("1. Give practical, accurate advice about vehicles only\n")
		prompt.WriteString("2. Recommend checking the owner's manual or a dealer for model-specific values\n")
		prompt.WriteString("3. If you are not sure, say so clearly\n")
	}
	prompt.WriteString("4. Be concise but complete\n")
	prompt.WriteString("5. Reply in the language of the question\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *ManualBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Answer:")
}

// Refusal is the fixed reply to off-topic questions.
func Refusal(subject, gateSubject string) string {
	if strings.TrimSpace(subject) == "" {
		subject = "your vehicle"
	}
	if gateSubject == "" {
		gateSubject = "vehicles"
	}

	var sb strings.Builder
	sb.WriteString("🚫 **Off-topic question**\n\n")
	sb.WriteString(fmt.Sprintf("I am an assistant dedicated to your **%s**. ", subject))
	sb.WriteString(fmt.Sprintf("I can only answer questions about %s: maintenance, operation and specifications.\n\n", gateSubject))
	sb.WriteString("💡 Try a question like:\n")
	sb.WriteString("- \"How does the braking system work?\"\n")
	sb.WriteString("- \"What is the recommended tire pressure?\"\n")
	sb.WriteString("- \"What does the engine warning light mean?\"\n")
	return sb.String()
}
