package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

var (
	okMark     = color.New(color.FgGreen)
	errorMark  = color.New(color.FgRed)
	headerMark = color.New(color.Bold)
	dimMark    = color.New(color.Faint)
)

func printReferences(w io.Writer, refs []domain.Reference) {
	if len(refs) == 0 {
		fmt.Fprintln(w, dimMark.Sprint("(no sufficient references)"))
		return
	}
	for _, ref := range refs {
		mark := " "
		if ref.Cited {
			mark = errorMark.Sprint("✗")
			if ref.Verified {
				mark = okMark.Sprint("✓")
			}
		}
		fmt.Fprintf(w, "%s [%d] %s  lines %d-%d  %.2f%%\n", mark, ref.Index, ref.DocumentName, ref.StartLine, ref.EndLine, ref.Similarity)
		if ref.Excerpt != "" {
			fmt.Fprintf(w, "      %s\n", dimMark.Sprint(ref.Excerpt))
		}
	}
}

func printAnswer(w io.Writer, answer *domain.Answer) {
	if answer.Text != "" {
		fmt.Fprintln(w, answer.Text)
		fmt.Fprintln(w)
	}
	if answer.GenerationError != "" {
		fmt.Fprintln(w, errorMark.Sprint("generation failed:"), answer.GenerationError)
		fmt.Fprintln(w)
	}
	if len(answer.Citations) > 0 {
		fmt.Fprintln(w, headerMark.Sprint("Citations"))
		for _, c := range answer.Citations {
			mark := errorMark.Sprint("✗")
			if c.Verified {
				mark = okMark.Sprint("✓")
			}
			fmt.Fprintf(w, "%s [%d] %q\n", mark, c.Reference, c.Quote)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, headerMark.Sprint("References"))
	printReferences(w, answer.References)
	if answer.ConversationID != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, dimMark.Sprint("conversation "+answer.ConversationID))
	}
}

func printDocuments(w io.Writer, docs []domain.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, dimMark.Sprint("no documents"))
		return
	}
	for _, doc := range docs {
		status := string(doc.Status)
		switch doc.Status {
		case domain.StatusCompleted:
			status = okMark.Sprint(status)
		case domain.StatusFailed:
			status = errorMark.Sprint(status)
		}
		fmt.Fprintf(w, "%s  %-9s %4d chunks  %s\n", doc.ID, status, doc.ChunkCount, doc.Name)
		if doc.Error != "" {
			fmt.Fprintf(w, "    %s\n", errorMark.Sprint(doc.Error))
		}
	}
}

func printConversations(w io.Writer, conversations []domain.Conversation) {
	if len(conversations) == 0 {
		fmt.Fprintln(w, dimMark.Sprint("no conversations"))
		return
	}
	for _, c := range conversations {
		fmt.Fprintf(w, "%s  %3d msgs  %s  %s\n", c.ID, c.MessageCount, c.LastMessageAt.Format("2006-01-02 15:04"), c.Title)
	}
}

func printMessages(w io.Writer, messages []domain.ConversationMessage) {
	for _, m := range messages {
		fmt.Fprintln(w, headerMark.Sprint(strings.ToUpper(string(m.Role))), dimMark.Sprint(m.CreatedAt.Format("2006-01-02 15:04")))
		fmt.Fprintln(w, m.Content)
		if len(m.References) > 0 {
			printReferences(w, m.References)
		}
		fmt.Fprintln(w)
	}
}
