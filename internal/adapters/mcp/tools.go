package mcpadapter

import "github.com/mark3labs/mcp-go/mcp"

func searchCorpusTool() mcp.Tool {
	return mcp.NewTool("search_corpus",
		mcp.WithDescription("Find the corpus passages most similar to a question, with document name, line range and similarity"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question or phrase to search for"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum passages to return (default: 5, max: 50)"),
		),
	)
}

func askCorpusTool() mcp.Tool {
	return mcp.NewTool("ask_corpus",
		mcp.WithDescription("Answer a question from the corpus and check every quoted citation against its source passage"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum passages given to the model (default: 5, max: 50)"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Continue an existing conversation"),
		),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List ingested documents with their status and chunk counts"),
	)
}
