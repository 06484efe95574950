package lanerules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dino-ds/laneqc/internal/dataset"
)

// keySchema is an exact allowed-key set for one level of a tool-call object.
type keySchema []string

var (
	exportDocumentSchema = struct {
		call, arguments, documentSpec, section keySchema
	}{
		call:         keySchema{"name", "arguments"},
		arguments:    keySchema{"format", "document_spec"},
		documentSpec: keySchema{"title", "sections", "style"},
		section:      keySchema{"heading", "body"},
	}
	zipListSchema = struct {
		call, arguments, item keySchema
	}{
		call:      keySchema{"name", "arguments"},
		arguments: keySchema{"zip_items"},
		item:      keySchema{"filename", "content"},
	}

	manifestLineRE = regexp.MustCompile(`^\s*-\s+(.+?)\s*$`)
)

// optionalToolNames are the tools lanes 03 and 04 may call.
var optionalToolNames = []string{
	"connector_action", "export_document", "history_search", "image_preview",
	"ingest", "ingest_zip", "web_fetch", "web_read", "zip_list",
}

// extraKeys returns the sorted keys of v that the schema does not allow,
// each prefixed with path.
func (s keySchema) extraKeys(v any, path string) []string {
	obj, ok := dataset.AsObject(v)
	if !ok {
		return nil
	}
	var extras []string
	for k := range obj {
		if !slices.Contains(s, k) {
			extras = append(extras, k)
		}
	}
	slices.Sort(extras)
	for i, k := range extras {
		extras[i] = path + "." + k
	}
	return extras
}

func exportDocumentExtraKeys(row dataset.Row) []string {
	tc, ok := row.Object("tool_call")
	if !ok {
		return nil
	}
	sc := exportDocumentSchema
	out := sc.call.extraKeys(tc, "tool_call")
	args, ok := dataset.AsObject(tc["arguments"])
	if !ok {
		return out
	}
	out = append(out, sc.arguments.extraKeys(args, "tool_call.arguments")...)
	doc, ok := dataset.AsObject(args["document_spec"])
	if !ok {
		return out
	}
	out = append(out, sc.documentSpec.extraKeys(doc, "tool_call.arguments.document_spec")...)
	if sections, ok := doc["sections"].([]any); ok {
		for i, sec := range sections {
			out = append(out, sc.section.extraKeys(sec, fmt.Sprintf("tool_call.arguments.document_spec.sections[%d]", i+1))...)
		}
	}
	return out
}

func zipListExtraKeys(row dataset.Row) []string {
	tc, ok := row.Object("tool_call")
	if !ok {
		return nil
	}
	sc := zipListSchema
	out := sc.call.extraKeys(tc, "tool_call")
	args, ok := dataset.AsObject(tc["arguments"])
	if !ok {
		return out
	}
	out = append(out, sc.arguments.extraKeys(args, "tool_call.arguments")...)
	if items, ok := args["zip_items"].([]any); ok {
		for i, item := range items {
			out = append(out, sc.item.extraKeys(item, fmt.Sprintf("tool_call.arguments.zip_items[%d]", i+1))...)
		}
	}
	return out
}

func toolCallName(tc map[string]any) string {
	s, _ := tc["name"].(string)
	return strings.TrimSpace(s)
}

func exportDocumentSchemaError(row dataset.Row) string {
	tc, ok := row.Object("tool_call")
	if !ok {
		return "tool_call is required and must be an object"
	}
	if toolCallName(tc) != "export_document" {
		return "tool_call.name must be 'export_document'"
	}
	args, ok := dataset.AsObject(tc["arguments"])
	if !ok {
		return "tool_call.arguments must be an object"
	}
	if dataset.IsBlankText(args["format"]) {
		return "tool_call.arguments.format is required"
	}
	doc, ok := dataset.AsObject(args["document_spec"])
	if !ok {
		return "tool_call.arguments.document_spec must be an object"
	}
	if dataset.IsBlankText(doc["title"]) {
		return "document_spec.title is required"
	}
	sections, ok := doc["sections"].([]any)
	if !ok || len(sections) == 0 {
		return "document_spec.sections must be a non-empty list"
	}
	for i, raw := range sections {
		sec, ok := dataset.AsObject(raw)
		if !ok {
			return fmt.Sprintf("document_spec.sections[%d] must be an object", i+1)
		}
		if dataset.IsBlankText(sec["heading"]) || dataset.IsBlankText(sec["body"]) {
			return fmt.Sprintf("document_spec.sections[%d] requires non-empty heading/body", i+1)
		}
	}
	if dataset.IsBlankText(doc["style"]) {
		return "document_spec.style is required"
	}
	return ""
}

func zipListSchemaError(row dataset.Row) string {
	tc, ok := row.Object("tool_call")
	if !ok {
		return "tool_call is required and must be an object"
	}
	if toolCallName(tc) != "zip_list" {
		return "tool_call.name must be 'zip_list'"
	}
	args, ok := dataset.AsObject(tc["arguments"])
	if !ok {
		return "tool_call.arguments must be an object"
	}
	items, ok := args["zip_items"].([]any)
	if !ok || len(items) < 2 {
		return "tool_call.arguments.zip_items must be a list with manifest + files"
	}
	manifest, ok := dataset.AsObject(items[0])
	if !ok {
		return "zip_items[0] must be an object"
	}
	if name, _ := manifest["filename"].(string); name != "manifest.md" {
		return "zip_items[0].filename must be 'manifest.md'"
	}

	filenames := make([]string, 0, len(items))
	for i, raw := range items {
		item, ok := dataset.AsObject(raw)
		if !ok {
			return fmt.Sprintf("zip_items[%d] must be an object", i+1)
		}
		_, contentOK := item["content"].(string)
		if dataset.IsBlankText(item["filename"]) || !contentOK {
			return fmt.Sprintf("zip_items[%d] requires filename/content strings", i+1)
		}
		filenames = append(filenames, strings.TrimSpace(item["filename"].(string)))
	}

	content, _ := manifest["content"].(string)
	var listed []string
	for _, ln := range strings.Split(content, "\n") {
		if m := manifestLineRE.FindStringSubmatch(strings.TrimRight(ln, "\r")); m != nil {
			listed = append(listed, strings.TrimSpace(m[1]))
		}
	}
	if len(listed) == 0 {
		return "manifest.md must list included filenames (one per '- filename')"
	}
	if !slices.Equal(listed, filenames[1:]) {
		return "manifest.md listed filenames must exactly match zip_items order after manifest.md"
	}
	return ""
}

// toolCallObjects returns every tool-call object on the row: tool_call as an
// object or a list of objects, then the objects in tool_calls.
func toolCallObjects(row dataset.Row) []map[string]any {
	var out []map[string]any
	switch tc := row["tool_call"].(type) {
	case []any:
		for _, item := range tc {
			if obj, ok := dataset.AsObject(item); ok {
				out = append(out, obj)
			}
		}
	default:
		if obj, ok := dataset.AsObject(tc); ok {
			out = append(out, obj)
		}
	}
	if list, ok := row.List("tool_calls"); ok {
		for _, item := range list {
			if obj, ok := dataset.AsObject(item); ok {
				out = append(out, obj)
			}
		}
	}
	return out
}

func optionalToolCall(c *rowCheck) {
	n := int(c.num)
	if v, ok := c.row["tool_call"]; ok {
		_, isList := v.([]any)
		_, isObj := dataset.AsObject(v)
		if !isList && !isObj {
			c.addf("tool_call_not_allowed_in_lane", "lane %02d tool_call must be an object when present", n)
			return
		}
	}
	if v, ok := c.row["tool_calls"]; ok {
		if _, isList := v.([]any); !isList {
			c.addf("tool_call_not_allowed_in_lane", "lane %02d tool_calls must be a list when present", n)
			return
		}
	}

	calls := toolCallObjects(c.row)
	if len(calls) > 1 {
		c.addf("tool_call_too_many", "lane %02d allows at most one tool_call per row", n)
		return
	}
	if len(calls) == 1 {
		name := toolCallName(calls[0])
		if !slices.Contains(optionalToolNames, name) {
			shown := name
			if shown == "" {
				shown = "None"
			}
			c.addf("tool_call_tool_not_allowed", "lane %02d tool_call.name '%s' is not allowed; allowed: %s",
				n, shown, strings.Join(optionalToolNames, ", "))
		}
	}
}
