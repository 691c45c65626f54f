package socket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tulisbareng/internal/collab"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, in inbound)
	}{
		{
			name: "cursor",
			raw:  `{"msg_type":"cursor","position":[3]}`,
			check: func(t *testing.T, in inbound) {
				assert.Equal(t, collab.Position{3}, in.Position)
			},
		},
		{
			name:    "cursor without position",
			raw:     `{"msg_type":"cursor"}`,
			wantErr: true,
		},
		{
			name: "typing start with block path",
			raw:  `{"msg_type":"typing_start","position":[1,4,0]}`,
			check: func(t *testing.T, in inbound) {
				assert.Equal(t, collab.Position{1, 4, 0}, in.Position)
			},
		},
		{
			name: "typing stop has no payload",
			raw:  `{"msg_type":"typing_stop"}`,
		},
		{
			name: "selection",
			raw:  `{"msg_type":"selection","content":{"start":[1,0],"end":[1,7]}}`,
			check: func(t *testing.T, in inbound) {
				require.NotNil(t, in.Selection)
				assert.Equal(t, collab.Position{1, 0}, in.Selection.Start)
				assert.Equal(t, collab.Position{1, 7}, in.Selection.End)
			},
		},
		{
			name:    "selection with empty range",
			raw:     `{"msg_type":"selection","content":{"start":[],"end":[2]}}`,
			wantErr: true,
		},
		{
			name: "mention",
			raw:  `{"msg_type":"mention","position":[2],"content":{"to_user_id":"u9","message":"see this"}}`,
			check: func(t *testing.T, in inbound) {
				require.NotNil(t, in.Mention)
				assert.Equal(t, "u9", in.Mention.ToUserID)
				assert.Equal(t, "see this", in.Mention.Message)
			},
		},
		{
			name:    "mention without recipient",
			raw:     `{"msg_type":"mention","content":{"message":"see this"}}`,
			wantErr: true,
		},
		{
			name: "edit with path in content",
			raw:  `{"msg_type":"edit","content":{"op_type":"insert","path":[0,2],"value":"x"}}`,
			check: func(t *testing.T, in inbound) {
				require.NotNil(t, in.Op)
				assert.Equal(t, collab.OpInsert, in.Op.Type)
				assert.Equal(t, collab.Position{0, 2}, in.Op.Path)
			},
		},
		{
			name: "edit carries base revision",
			raw:  `{"msg_type":"edit","content":{"op_type":"insert","path":[2],"value":"x","base_rev":7}}`,
			check: func(t *testing.T, in inbound) {
				require.NotNil(t, in.Op)
				assert.Equal(t, collab.Position{2}, in.Op.Path)
				assert.Equal(t, 7, in.BaseRev)
			},
		},
		{
			name: "edit falls back to envelope position",
			raw:  `{"msg_type":"edit","position":[5],"content":{"op_type":"delete"}}`,
			check: func(t *testing.T, in inbound) {
				require.NotNil(t, in.Op)
				assert.Equal(t, collab.Position{5}, in.Op.Path)
			},
		},
		{
			name:    "edit without any path",
			raw:     `{"msg_type":"edit","content":{"op_type":"insert"}}`,
			wantErr: true,
		},
		{
			name:    "edit with unknown op type",
			raw:     `{"msg_type":"edit","position":[1],"content":{"op_type":"explode"}}`,
			wantErr: true,
		},
		{
			name:    "join is server generated",
			raw:     `{"msg_type":"join"}`,
			wantErr: true,
		},
		{
			name:    "leave is server generated",
			raw:     `{"msg_type":"leave"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			raw:     `{"msg_type":"format_disk"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `{{{{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := decodeInbound([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, collab.ErrMalformedMessage)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, in)
			}
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	now := time.Now()

	t.Run("edit carries op and path", func(t *testing.T) {
		op := collab.Operation{Type: collab.OpInsert, Path: collab.Position{1, 2}}
		msg, err := encodeEvent(collab.Event{
			Type: collab.EventEdit, DocID: "d", UserID: "u", Timestamp: now, Op: &op,
		})
		require.NoError(t, err)
		assert.Equal(t, TypeEdit, msg.Type)
		assert.Equal(t, collab.Position{1, 2}, msg.Position)
		assert.JSONEq(t, `{"op_type":"insert","path":[1,2]}`, string(msg.Content))
	})

	t.Run("edit carries its revision", func(t *testing.T) {
		op := collab.Operation{Type: collab.OpInsert, Path: collab.Position{4}}
		msg, err := encodeEvent(collab.Event{
			Type: collab.EventEdit, DocID: "d", UserID: "u", Timestamp: now, Op: &op, Rev: 3,
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"op_type":"insert","path":[4],"rev":3}`, string(msg.Content))
	})

	t.Run("resync carries missed count", func(t *testing.T) {
		msg, err := encodeEvent(collab.Event{Type: collab.EventResyncRequired, DocID: "d", Missed: 42})
		require.NoError(t, err)
		assert.Equal(t, TypeResync, msg.Type)
		assert.Equal(t, 42, msg.Missed)
	})

	t.Run("leave has no payload", func(t *testing.T) {
		msg, err := encodeEvent(collab.Event{Type: collab.EventUserLeft, DocID: "d", UserID: "u"})
		require.NoError(t, err)
		assert.Equal(t, TypeLeave, msg.Type)
		assert.Nil(t, msg.Content)
	})
}
