package bones

import (
	"fmt"

	"github.com/bobisme/bones/internal/codec"
)

// Intent is a semantic mutation request passed to AppendEvent. It knows
// how to render itself into an event's type and Data payload; AppendEvent
// is responsible for everything an intent does not carry itself
// (timestamp, agent, ITC stamp, parents, hash).
type Intent interface {
	intentNode()
	targetItemID() string
	eventType() codec.EventType
	buildData() (map[string]any, error)
	scannedTexts() []string
}

// CreateItem starts a new item. Kind, Description, and Parent default
// to the empty string when absent; Size and Urgency are left unset
// unless explicitly given.
type CreateItem struct {
	ItemID      string
	Title       string
	Kind        string
	Description string
	Parent      string
	Size        *float64
	Urgency     *float64
	Labels      []string
}

func (CreateItem) intentNode()                {}
func (i CreateItem) targetItemID() string      { return i.ItemID }
func (CreateItem) eventType() codec.EventType { return codec.TypeItemCreate }
func (i CreateItem) scannedTexts() []string    { return []string{i.Title, i.Description} }

func (i CreateItem) buildData() (map[string]any, error) {
	if i.Title == "" {
		return nil, newError(KindInvalidIntent, "item.create requires a title", nil)
	}
	data := map[string]any{"title": i.Title}
	if i.Kind != "" {
		data["kind"] = i.Kind
	}
	if i.Description != "" {
		data["description"] = i.Description
	}
	if i.Parent != "" {
		data["parent"] = i.Parent
	}
	if i.Size != nil {
		data["size"] = *i.Size
	}
	if i.Urgency != nil {
		data["urgency"] = *i.Urgency
	}
	if len(i.Labels) > 0 {
		labels := make([]any, len(i.Labels))
		for idx, l := range i.Labels {
			labels[idx] = l
		}
		data["labels"] = labels
	}
	return data, nil
}

// UpdateItem patches one or more of an item's scalar fields. Every
// pointer field left nil is untouched; at least one must be set.
type UpdateItem struct {
	ItemID      string
	Title       *string
	Description *string
	Kind        *string
	Parent      *string
	Size        *float64
	Urgency     *float64
}

func (UpdateItem) intentNode()                {}
func (i UpdateItem) targetItemID() string      { return i.ItemID }
func (UpdateItem) eventType() codec.EventType { return codec.TypeItemUpdate }

func (i UpdateItem) scannedTexts() []string {
	var texts []string
	if i.Title != nil {
		texts = append(texts, *i.Title)
	}
	if i.Description != nil {
		texts = append(texts, *i.Description)
	}
	return texts
}

func (i UpdateItem) buildData() (map[string]any, error) {
	data := map[string]any{}
	if i.Title != nil {
		data["title"] = *i.Title
	}
	if i.Description != nil {
		data["description"] = *i.Description
	}
	if i.Kind != nil {
		data["kind"] = *i.Kind
	}
	if i.Parent != nil {
		data["parent"] = *i.Parent
	}
	if i.Size != nil {
		data["size"] = *i.Size
	}
	if i.Urgency != nil {
		data["urgency"] = *i.Urgency
	}
	if len(data) == 0 {
		return nil, newError(KindInvalidIntent, "item.update must touch at least one field", nil)
	}
	return data, nil
}

// MoveItem transitions an item's phase, or reopens it when Reopen is
// set (Phase is ignored in that case).
type MoveItem struct {
	ItemID string
	Phase  string
	Reopen bool
}

func (MoveItem) intentNode()                {}
func (i MoveItem) targetItemID() string      { return i.ItemID }
func (MoveItem) eventType() codec.EventType { return codec.TypeItemMove }
func (MoveItem) scannedTexts() []string     { return nil }

func (i MoveItem) buildData() (map[string]any, error) {
	if i.Reopen {
		return map[string]any{"reopen": true}, nil
	}
	if i.Phase == "" {
		return nil, newError(KindInvalidIntent, "item.move requires a phase or reopen", nil)
	}
	return map[string]any{"phase": i.Phase}, nil
}

// linkField is the closed set of OR-set fields item.link/item.unlink and
// item.assign may address, mirroring internal/dag/apply.go's switch.
const (
	FieldBlockedBy  = "blocked_by"
	FieldRelatedTo  = "related_to"
	FieldLabels     = "labels"
	FieldAssignees  = "assignees"
)

// LinkItem adds target to one of an item's OR-set fields.
type LinkItem struct {
	ItemID string
	Field  string
	Target string
}

func (LinkItem) intentNode()                {}
func (i LinkItem) targetItemID() string      { return i.ItemID }
func (LinkItem) eventType() codec.EventType { return codec.TypeItemLink }
func (LinkItem) scannedTexts() []string     { return nil }

func (i LinkItem) buildData() (map[string]any, error) {
	if err := validateLinkField(i.Field); err != nil {
		return nil, err
	}
	if i.Target == "" {
		return nil, newError(KindInvalidIntent, "item.link requires a target", nil)
	}
	return map[string]any{"field": i.Field, "target": i.Target}, nil
}

// UnlinkItem removes target from one of an item's OR-set fields.
type UnlinkItem struct {
	ItemID string
	Field  string
	Target string
}

func (UnlinkItem) intentNode()                {}
func (i UnlinkItem) targetItemID() string      { return i.ItemID }
func (UnlinkItem) eventType() codec.EventType { return codec.TypeItemUnlink }
func (UnlinkItem) scannedTexts() []string     { return nil }

func (i UnlinkItem) buildData() (map[string]any, error) {
	if err := validateLinkField(i.Field); err != nil {
		return nil, err
	}
	if i.Target == "" {
		return nil, newError(KindInvalidIntent, "item.unlink requires a target", nil)
	}
	return map[string]any{"field": i.Field, "target": i.Target}, nil
}

func validateLinkField(field string) error {
	switch field {
	case FieldBlockedBy, FieldRelatedTo, FieldLabels, FieldAssignees:
		return nil
	default:
		return newError(KindInvalidIntent, fmt.Sprintf("unknown link field %q", field), nil)
	}
}

// AssignItem adds or removes an assignee. This is the dedicated
// assignment event type; LinkItem/UnlinkItem with Field ==
// FieldAssignees reach the same OR-set through the generic link path —
// both exist because internal/dag/apply.go's applyAssign handles
// item.assign as its own case distinct from applyLinkEvent's "assignees"
// branch.
type AssignItem struct {
	ItemID string
	Agent  string
	Remove bool
}

func (AssignItem) intentNode()                {}
func (i AssignItem) targetItemID() string      { return i.ItemID }
func (AssignItem) eventType() codec.EventType { return codec.TypeItemAssign }
func (AssignItem) scannedTexts() []string     { return nil }

func (i AssignItem) buildData() (map[string]any, error) {
	if i.Agent == "" {
		return nil, newError(KindInvalidIntent, "item.assign requires an agent", nil)
	}
	data := map[string]any{"agent": i.Agent}
	if i.Remove {
		data["action"] = "remove"
	}
	return data, nil
}

// CommentItem appends a comment to an item's grow-only comment set.
type CommentItem struct {
	ItemID string
	Body   string
}

func (CommentItem) intentNode()                {}
func (i CommentItem) targetItemID() string      { return i.ItemID }
func (CommentItem) eventType() codec.EventType { return codec.TypeItemComment }
func (i CommentItem) scannedTexts() []string    { return []string{i.Body} }

func (i CommentItem) buildData() (map[string]any, error) {
	if i.Body == "" {
		return nil, newError(KindInvalidIntent, "item.comment requires a body", nil)
	}
	return map[string]any{"body": i.Body}, nil
}

// DeleteItem soft-deletes (or, with Undelete, un-deletes) an item.
// item.delete does not stop later events from applying to the item —
// the delete register is just another LWW field any later event's
// patch can still be merged against.
type DeleteItem struct {
	ItemID   string
	Undelete bool
}

func (DeleteItem) intentNode()                {}
func (i DeleteItem) targetItemID() string      { return i.ItemID }
func (DeleteItem) eventType() codec.EventType { return codec.TypeItemDelete }
func (DeleteItem) scannedTexts() []string     { return nil }

func (i DeleteItem) buildData() (map[string]any, error) {
	return map[string]any{"deleted": !i.Undelete}, nil
}

// RedactComment replaces a single comment's body with "[redacted]"
// everywhere it has propagated. Reason is carried in the event for
// audit purposes but is not part of the lattice state.
type RedactComment struct {
	ItemID      string
	CommentHash string
	Reason      string
}

func (RedactComment) intentNode()                {}
func (i RedactComment) targetItemID() string      { return i.ItemID }
func (RedactComment) eventType() codec.EventType { return codec.TypeItemRedact }
func (RedactComment) scannedTexts() []string     { return nil }

func (i RedactComment) buildData() (map[string]any, error) {
	if i.CommentHash == "" {
		return nil, newError(KindInvalidIntent, "item.redact requires a comment_hash", nil)
	}
	data := map[string]any{"comment_hash": i.CommentHash}
	if i.Reason != "" {
		data["reason"] = i.Reason
	}
	return data, nil
}

// snapshotItem is not user-facing: Compact builds one from the item's
// already-materialized state via internal/integrity.BuildSnapshotPayload.
type snapshotItem struct {
	itemID string
	data   map[string]any
}

func (snapshotItem) intentNode()                {}
func (i snapshotItem) targetItemID() string      { return i.itemID }
func (snapshotItem) eventType() codec.EventType { return codec.TypeItemSnapshot }
func (snapshotItem) scannedTexts() []string     { return nil }
func (i snapshotItem) buildData() (map[string]any, error) { return i.data, nil }
