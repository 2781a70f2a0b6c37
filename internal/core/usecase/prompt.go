package usecase

import "fmt"

// Instruction templates handed to the generation backend. The grounded
// variant pins the model to the assembled context; the bare variant is used
// when assembly produced no context at all.
const (
	groundedPromptFormat = "You are a helpful assistant that answers questions based on the provided context. \n" +
		"Use only the information from the context to answer the question. If the context doesn't contain \n" +
		"enough information to answer the question, say so clearly.\n" +
		"\n" +
		"Context:\n" +
		"%s\n" +
		"\n" +
		"Question: %s\n" +
		"\n" +
		"Answer: "

	barePromptFormat = "You are a helpful assistant. Please answer the following question:\n" +
		"\n" +
		"Question: %s\n" +
		"\n" +
		"Answer: "
)

func buildPrompt(question, contextText string) string {
	if contextText == "" {
		return fmt.Sprintf(barePromptFormat, question)
	}
	return fmt.Sprintf(groundedPromptFormat, contextText, question)
}
