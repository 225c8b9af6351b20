package generate

import "strings"

// NotesSystemPrompt instructs the model how to structure notes.
const NotesSystemPrompt = `You organize raw transcripts into professionally structured notes.

Rules:
1. Identify key topics and build a clear hierarchy of main headings and subheadings
2. Use bullet points for important details and key points
3. Use numbered lists for sequential steps, prioritized items, or chronological information
4. Group related information together logically
5. Highlight important concepts, definitions, actionable items, and key terms
6. Keep a professional flow suitable for business or academic settings
7. Correct grammar and clarity issues but preserve all meaningful information
8. Remove filler words, redundancies, and informal speech patterns
9. Open with a concise summary when the content is substantial
10. Close with a conclusion or next steps section when appropriate

Format the notes as markdown:
- Main section headings with #
- Subsection headings with ## and ###
- Bullet points with - for key details and facts
- Numbered lists for sequential steps or prioritized items
- **Bold** for important terms and concepts
- *Italic* for definitions or specialized terminology
- > Blockquotes for direct quotations or important statements
- Paragraphs separated by blank lines

Return only the notes.`

// NotesPrompt builds the single user message for providers without a
// separate system prompt.
func NotesPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString(NotesSystemPrompt)
	b.WriteString("\n\nHere is the transcript:\n")
	b.WriteString(transcript)
	return b.String()
}
