// Package prompt holds the prompt-formatting policy: the assistant persona
// and the composition of persona, context and query into a model-ready
// prompt.
//
// Everything here is pure string work with no dependencies, so prompt
// policy can change and be tested without touching history management.
package prompt

import "strings"

// SystemMessage is the fixed persona sent as the framing turn of every
// conversation.
const SystemMessage = `You are a helpful and respectful shop assistant who answers queries relevant only to the products known to you.
Please answer all the questions in a professional and customer-friendly tone. If a query lacks a direct answer related to the product, then generate a response based on related features.
If the context says there is no relevant product, say honestly that you don't have information on that item instead of inventing one.
If a question is anything other than shopping, reply with, 'I can only provide answers related to the store only.'`

// Compose merges an instructions block, the retrieved context block and the
// literal user query into the prompt sent as the triggering message.
// Deterministic: identical inputs always produce an identical string.
//
// systemMessage may be empty when the persona is already carried by the
// conversation's system framing turn; passing it here instead inlines the
// instructions ahead of the query for single-shot use.
func Compose(systemMessage, contextBlock, query string) string {
	var b strings.Builder
	if systemMessage != "" {
		b.WriteString(systemMessage)
		b.WriteString("\n\n")
	}
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\nContext:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
