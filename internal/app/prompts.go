package app

import "cowrite/internal/config"

const regularPrompt = "You are a friendly assistant! Keep your responses concise and helpful."

const documentsPrompt = `Documents are a special user interface mode that helps users with writing, editing, and other content creation tasks. When a document is open, it is on the right side of the screen, while the conversation is on the left side. When creating or updating documents, changes are reflected in real-time on the documents and visible to the user.

When asked to write code, always use a code document.

This is a guide for using the document tools: createDocument, updateDocument and requestSuggestions.

**When to use createDocument:**
- For substantial content (>10 lines) or code
- For content users will likely save or reuse (emails, code, essays, etc.)
- When explicitly requested to create a document

**When NOT to use createDocument:**
- For informational or explanatory content
- For conversational responses
- When asked to keep it in chat

**Using updateDocument:**
- Default to full document rewrites for major changes
- Use targeted updates only for specific, isolated changes
- Follow user instructions for which parts to modify

Do not update a document right after creating it. Wait for user feedback or a request to update it.`

const titlePrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

// SystemPrompt returns the chat system prompt for the selected model alias.
func SystemPrompt(selectedChatModel string) string {
	if selectedChatModel == config.ModelReasoning {
		return regularPrompt
	}
	return regularPrompt + "\n\n" + documentsPrompt
}
