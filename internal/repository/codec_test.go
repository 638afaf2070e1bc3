package repository

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamload/internal/model"
)

func TestDecodeTaskDefaults(t *testing.T) {
	got := DecodeTask([]string{"t1", "alice@x.com", "cut trailer", "abc", "true"})

	want := model.Task{
		ID:       "t1",
		MemberID: "alice@x.com",
		Content:  "cut trailer",
		Weight:   0,
		IsDone:   false, // only the exact "TRUE" sentinel is truthy
		Category: model.DefaultCategory,
		WorkWeek: fallbackWeek,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("DecodeTask mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTaskFullRow(t *testing.T) {
	row := []string{
		"t2", "bob@x.com", "mix episode 3", "4", "TRUE", "1760000000000", "sound",
		"2026-10-19", "stems in drive", "high", "TRUE", "carol@x.com", "2",
	}
	got := DecodeTask(row)

	assert.Equal(t, 4, got.Weight)
	assert.True(t, got.IsDone)
	assert.Equal(t, int64(1760000000000), got.CreatedAt)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.True(t, got.RepeatWeekly)
	assert.Equal(t, "carol@x.com", got.Assignee())
	assert.Equal(t, 2, got.Order)
	assert.Equal(t, row, EncodeTask(got))
}

func TestDecodeTaskUnknownPriority(t *testing.T) {
	got := DecodeTask([]string{"t3", "a", "c", "1", "FALSE", "0", "edit", "2026-10-19", "", "urgent"})
	assert.Equal(t, model.PriorityNone, got.Priority)
	assert.Equal(t, 0, got.Priority.Rank())
}

func TestDecodeMemberCapacityFallback(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want int
	}{
		{"missing", "", model.DefaultCapacity},
		{"zero", "0", model.DefaultCapacity},
		{"garbage", "lots", model.DefaultCapacity},
		{"set", "20", 20},
		{"decimal", "12.0", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DecodeMember([]string{"a@x.com", "A", "", "0", tt.cell})
			assert.Equal(t, tt.want, m.MaxPoints)
			assert.Equal(t, "a@x.com", m.ID)
		})
	}
}

func TestMemberTelegramIDColumn(t *testing.T) {
	m := model.Member{Email: "a@x.com", Name: "A", TelegramID: 123456789}
	row := EncodeMember(m)
	require.Len(t, row, len(MemberHeader))
	assert.Equal(t, "123456789", row[memberColTelegramID])
	assert.Equal(t, int64(123456789), DecodeMember(row).TelegramID)

	assert.Zero(t, DecodeMember([]string{"a@x.com", "A", "", "0", "15"}).TelegramID)
	assert.Equal(t, "", EncodeMember(model.Member{Email: "a@x.com"})[memberColTelegramID])
}

func TestDecodeCategoryDefaultPoints(t *testing.T) {
	assert.Equal(t, 1, DecodeCategory([]string{"edit", "Edit"}).DefaultPoints)
	assert.Equal(t, 3, DecodeCategory([]string{"camera", "Camera", "3"}).DefaultPoints)
}
