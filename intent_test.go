package bones

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobisme/bones/internal/codec"
)

func TestCreateItemBuildDataRequiresTitle(t *testing.T) {
	_, err := CreateItem{ItemID: "bn-1"}.buildData()
	require.Error(t, err)
	require.True(t, IsInvalidIntent(err))
}

func TestCreateItemBuildDataIncludesOptionalFields(t *testing.T) {
	size := 3.0
	data, err := CreateItem{ItemID: "bn-1", Title: "t", Kind: "task", Size: &size, Labels: []string{"x", "y"}}.buildData()
	require.NoError(t, err)
	require.Equal(t, "t", data["title"])
	require.Equal(t, "task", data["kind"])
	require.Equal(t, 3.0, data["size"])
	require.Equal(t, []any{"x", "y"}, data["labels"])
}

func TestUpdateItemRequiresAtLeastOneField(t *testing.T) {
	_, err := UpdateItem{ItemID: "bn-1"}.buildData()
	require.Error(t, err)
}

func TestMoveItemRequiresPhaseOrReopen(t *testing.T) {
	_, err := MoveItem{ItemID: "bn-1"}.buildData()
	require.Error(t, err)

	data, err := MoveItem{ItemID: "bn-1", Reopen: true}.buildData()
	require.NoError(t, err)
	require.Equal(t, true, data["reopen"])

	data, err = MoveItem{ItemID: "bn-1", Phase: "doing"}.buildData()
	require.NoError(t, err)
	require.Equal(t, "doing", data["phase"])
}

func TestLinkItemRejectsUnknownField(t *testing.T) {
	_, err := LinkItem{ItemID: "bn-1", Field: "nope", Target: "bn-2"}.buildData()
	require.Error(t, err)
}

func TestAssignItemRemoveSetsAction(t *testing.T) {
	data, err := AssignItem{ItemID: "bn-1", Agent: "alice", Remove: true}.buildData()
	require.NoError(t, err)
	require.Equal(t, "alice", data["agent"])
	require.Equal(t, "remove", data["action"])
}

func TestDeleteItemDefaultsToDeletedTrue(t *testing.T) {
	data, err := DeleteItem{ItemID: "bn-1"}.buildData()
	require.NoError(t, err)
	require.Equal(t, true, data["deleted"])

	data, err = DeleteItem{ItemID: "bn-1", Undelete: true}.buildData()
	require.NoError(t, err)
	require.Equal(t, false, data["deleted"])
}

func TestRedactCommentRequiresHash(t *testing.T) {
	_, err := RedactComment{ItemID: "bn-1"}.buildData()
	require.Error(t, err)
}

func TestIntentEventTypes(t *testing.T) {
	require.Equal(t, codec.TypeItemCreate, CreateItem{}.eventType())
	require.Equal(t, codec.TypeItemUpdate, UpdateItem{}.eventType())
	require.Equal(t, codec.TypeItemMove, MoveItem{}.eventType())
	require.Equal(t, codec.TypeItemLink, LinkItem{}.eventType())
	require.Equal(t, codec.TypeItemUnlink, UnlinkItem{}.eventType())
	require.Equal(t, codec.TypeItemAssign, AssignItem{}.eventType())
	require.Equal(t, codec.TypeItemComment, CommentItem{}.eventType())
	require.Equal(t, codec.TypeItemDelete, DeleteItem{}.eventType())
	require.Equal(t, codec.TypeItemRedact, RedactComment{}.eventType())
}
