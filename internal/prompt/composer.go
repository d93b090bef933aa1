// Package prompt builds the envelope sent to the model for each turn.
package prompt

import "fmt"

// Compose joins the persona, the memory context (core memory plus full
// conversation log) and the new user input into the fixed prompt template:
//
//	<system prompt>
//
//	<memory context>
//	User: <input>
//	Mantis:
//
// The whole history is resent every turn. No truncation or summarization is
// applied; prompt length grows with the session, which is an accepted
// limitation of the design rather than something to fix silently here.
func Compose(systemPrompt, memoryContext, userInput string) string {
	return fmt.Sprintf("%s\n\n%s\nUser: %s\nMantis:", systemPrompt, memoryContext, userInput)
}
