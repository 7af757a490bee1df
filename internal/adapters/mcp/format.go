package mcpadapter

import (
	"fmt"
	"strings"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func formatRetrieval(question string, result *domain.Retrieval) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search: %s\n\n", question)
	if result.NoSufficientMatches || len(result.References) == 0 {
		b.WriteString("No passage passed the similarity threshold.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d passages (threshold %.2f)\n\n", len(result.References), result.Threshold)
	writeReferences(&b, result.References)
	return b.String()
}

func formatAnswer(answer *domain.Answer) string {
	var b strings.Builder
	if answer.Text != "" {
		b.WriteString(answer.Text)
		b.WriteString("\n\n")
	}
	if answer.GenerationError != "" {
		fmt.Fprintf(&b, "Generation failed: %s\n\n", answer.GenerationError)
	}
	if answer.ConversationID != "" {
		fmt.Fprintf(&b, "Conversation: %s\n\n", answer.ConversationID)
	}
	if len(answer.Citations) > 0 {
		b.WriteString("## Citations\n\n")
		for _, c := range answer.Citations {
			mark := "unverified"
			if c.Verified {
				mark = "verified"
			}
			fmt.Fprintf(&b, "- [%d] %s: %q\n", c.Reference, mark, c.Quote)
		}
		b.WriteString("\n")
	}
	if len(answer.References) == 0 {
		b.WriteString("No references.\n")
		return b.String()
	}
	b.WriteString("## References\n\n")
	writeReferences(&b, answer.References)
	return b.String()
}

func writeReferences(b *strings.Builder, refs []domain.Reference) {
	for _, ref := range refs {
		fmt.Fprintf(b, "%d. **%s** lines %d-%d (%.1f%%)\n", ref.Index, ref.DocumentName, ref.StartLine, ref.EndLine, ref.Similarity)
		if ref.Excerpt != "" {
			fmt.Fprintf(b, "   > %s\n", ref.Excerpt)
		}
	}
}

func formatDocuments(docs []domain.Document) string {
	if len(docs) == 0 {
		return "The corpus is empty.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Documents (%d)\n\n", len(docs))
	for _, doc := range docs {
		fmt.Fprintf(&b, "- %s `%s` status=%s chunks=%d\n", doc.Name, doc.ID, doc.Status, doc.ChunkCount)
		if doc.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", doc.Error)
		}
	}
	return b.String()
}
