package harness

import (
	"fmt"

	"github.com/bobisme/bones"
)

// buildIntent translates a scenario step's op/args into the bones.Intent
// it names. The args map comes straight out of YAML decoding, so numbers
// may arrive as int or float64 depending on whether the literal had a
// decimal point.
func buildIntent(op string, args map[string]any) (bones.Intent, error) {
	switch op {
	case "create_item":
		return bones.CreateItem{
			ItemID:      str(args, "item_id"),
			Title:       str(args, "title"),
			Kind:        str(args, "kind"),
			Description: str(args, "description"),
			Parent:      str(args, "parent"),
			Size:        floatPtr(args, "size"),
			Urgency:     floatPtr(args, "urgency"),
			Labels:      strSlice(args, "labels"),
		}, nil
	case "update_item":
		return bones.UpdateItem{
			ItemID:      str(args, "item_id"),
			Title:       strPtr(args, "title"),
			Description: strPtr(args, "description"),
			Kind:        strPtr(args, "kind"),
			Parent:      strPtr(args, "parent"),
			Size:        floatPtr(args, "size"),
			Urgency:     floatPtr(args, "urgency"),
		}, nil
	case "move_item":
		return bones.MoveItem{
			ItemID: str(args, "item_id"),
			Phase:  str(args, "phase"),
			Reopen: boolVal(args, "reopen"),
		}, nil
	case "link_item":
		return bones.LinkItem{
			ItemID: str(args, "item_id"),
			Field:  str(args, "field"),
			Target: str(args, "target"),
		}, nil
	case "unlink_item":
		return bones.UnlinkItem{
			ItemID: str(args, "item_id"),
			Field:  str(args, "field"),
			Target: str(args, "target"),
		}, nil
	case "assign_item":
		return bones.AssignItem{
			ItemID: str(args, "item_id"),
			Agent:  str(args, "agent"),
			Remove: boolVal(args, "remove"),
		}, nil
	case "comment_item":
		return bones.CommentItem{
			ItemID: str(args, "item_id"),
			Body:   str(args, "body"),
		}, nil
	case "delete_item":
		return bones.DeleteItem{
			ItemID:   str(args, "item_id"),
			Undelete: boolVal(args, "undelete"),
		}, nil
	case "redact_comment":
		return bones.RedactComment{
			ItemID:      str(args, "item_id"),
			CommentHash: str(args, "comment_hash"),
			Reason:      str(args, "reason"),
		}, nil
	default:
		return nil, fmt.Errorf("harness: unknown op %q", op)
	}
}

func str(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func strPtr(args map[string]any, key string) *string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

func boolVal(args map[string]any, key string) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func floatPtr(args map[string]any, key string) *float64 {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

func strSlice(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
