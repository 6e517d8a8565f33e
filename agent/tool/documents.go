package tool

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

//go:embed context/*.md
var knowledgeFS embed.FS

// knowledgeDoc is one embedded knowledge-base document. The ID is the
// numeric filename prefix, e.g. "06" for 06_membership_program.md.
type knowledgeDoc struct {
	ID      string
	Title   string
	Summary string
	Details string
}

func loadKnowledgeDocs() (map[string]knowledgeDoc, []string, error) {
	entries, err := knowledgeFS.ReadDir("context")
	if err != nil {
		return nil, nil, fmt.Errorf("read knowledge dir: %w", err)
	}
	docs := make(map[string]knowledgeDoc, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		raw, err := knowledgeFS.ReadFile(path.Join("context", name))
		if err != nil {
			return nil, nil, fmt.Errorf("read knowledge doc %s: %w", name, err)
		}
		id, _, _ := strings.Cut(name, "_")
		doc := parseKnowledgeDoc(id, string(raw))
		docs[id] = doc
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return docs, ids, nil
}

func parseKnowledgeDoc(id, raw string) knowledgeDoc {
	doc := knowledgeDoc{ID: id}
	for _, section := range strings.Split(raw, "\n## ") {
		switch {
		case strings.HasPrefix(section, "# "):
			doc.Title = strings.TrimSpace(strings.TrimPrefix(firstLine(section), "# "))
		case strings.HasPrefix(section, "Summary"):
			doc.Summary = strings.TrimSpace(strings.TrimPrefix(section, "Summary"))
		case strings.HasPrefix(section, "Details"):
			doc.Details = strings.TrimSpace(strings.TrimPrefix(section, "Details"))
		}
	}
	return doc
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func newDocumentSummaryTool(docs map[string]knowledgeDoc, ids []string) *Tool {
	return &Tool{
		Name: "document_summary",
		Info: &schema.ToolInfo{
			Name: "document_summary",
			Desc: "List all ShowEasy knowledge base documents with their IDs and one-paragraph summaries. Call this first to decide which documents to read in full.",
		},
		Invoke: func(ctx context.Context, _ map[string]any) (contractx.ToolResult, error) {
			var b strings.Builder
			for _, id := range ids {
				doc := docs[id]
				fmt.Fprintf(&b, "[%s] %s: %s\n", doc.ID, doc.Title, doc.Summary)
			}
			return contractx.ToolResult{Fields: map[string]any{
				"status":    "ok",
				"count":     len(ids),
				"summaries": strings.TrimSpace(b.String()),
			}}, nil
		},
	}
}

func newDocumentDetailTool(docs map[string]knowledgeDoc) *Tool {
	return &Tool{
		Name: "document_detail",
		Info: &schema.ToolInfo{
			Name: "document_detail",
			Desc: "Fetch the full text of one or more knowledge base documents by ID, e.g. [\"06\"] for the membership program.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"doc_ids": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Desc:     "document IDs from document_summary",
					Required: true,
				},
			}),
		},
		ArgsSchema: `{
			"type": "object",
			"properties": {
				"doc_ids": {
					"type": ["array", "string"],
					"items": {"type": "string"},
					"minItems": 1
				}
			},
			"required": ["doc_ids"]
		}`,
		Invoke: func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
			ids := stringList(args["doc_ids"])
			var found []string
			var missing []string
			for _, id := range ids {
				doc, ok := docs[strings.TrimSpace(id)]
				if !ok {
					missing = append(missing, id)
					continue
				}
				found = append(found, fmt.Sprintf("[%s] %s\n%s", doc.ID, doc.Title, doc.Details))
			}
			if len(found) == 0 {
				return contractx.ToolResult{Fields: map[string]any{
					"status":  "error",
					"message": fmt.Sprintf("no documents found for IDs %v; call document_summary for the valid IDs", ids),
				}}, nil
			}
			fields := map[string]any{
				"status":    "ok",
				"documents": strings.Join(found, "\n\n"),
			}
			if len(missing) > 0 {
				fields["missing"] = strings.Join(missing, ", ")
			}
			return contractx.ToolResult{Fields: fields}, nil
		},
	}
}

// stringList accepts the JSON shapes models actually send for a list
// argument: a real array, or a single bare string.
func stringList(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	case string:
		return []string{vv}
	default:
		return nil
	}
}
