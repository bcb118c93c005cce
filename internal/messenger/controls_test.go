package messenger_test

import (
	"taskBot/internal/messenger"
	"taskBot/internal/models/task"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomIDs_RoundTrip(t *testing.T) {
	prefix, id, err := messenger.ParseCustomID(messenger.CheckinButtonID(42))
	require.NoError(t, err)
	assert.Equal(t, messenger.CheckinButtonPrefix, prefix)
	assert.Equal(t, int64(42), id)

	assert.Equal(t, "checkin_select:7", messenger.CheckinSelectID(7))
	assert.Equal(t, "task_checkin:7", messenger.CheckinButtonID(7))
}

func TestParseCustomID_Invalid(t *testing.T) {
	for _, raw := range []string{"", "task_checkin", "task_checkin:", "task_checkin:abc", ":5", "task_checkin:-1"} {
		t.Run(raw, func(t *testing.T) {
			_, _, err := messenger.ParseCustomID(raw)
			assert.Error(t, err)
		})
	}
}

func TestCheckinSelect_Options(t *testing.T) {
	sel := messenger.CheckinSelect(3)

	assert.Equal(t, "checkin_select:3", sel.CustomID)
	require.Len(t, sel.Options, 4)
	assert.Equal(t, "done", sel.Options[0].Value)
	assert.Equal(t, "Done!", sel.Options[0].Label)
	assert.Equal(t, string(task.ChoiceSkipped), sel.Options[3].Value)
}

func TestParseUserIDs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int64
	}{
		{"mentions", "<@123456789012345678> <@!223456789012345678>", []int64{123456789012345678, 223456789012345678}},
		{"duplicates collapsed", "123456789012345678 <@123456789012345678>", []int64{123456789012345678}},
		{"short numbers ignored", "@bob 12345", []int64{}},
		{"empty", "", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messenger.ParseUserIDs(tt.raw))
		})
	}
}

func TestParseChannelID(t *testing.T) {
	id, err := messenger.ParseChannelID(" <#555000111222333444> ")
	require.NoError(t, err)
	assert.Equal(t, int64(555000111222333444), id)

	id, err = messenger.ParseChannelID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = messenger.ParseChannelID("#general")
	assert.Error(t, err)
	_, err = messenger.ParseChannelID("")
	assert.Error(t, err)
}

func TestMember_HasRole(t *testing.T) {
	m := &messenger.Member{Roles: []string{"Member", "SE"}}
	assert.True(t, m.HasRole("SE"))
	assert.False(t, m.HasRole("se"))

	var nilMember *messenger.Member
	assert.False(t, nilMember.HasRole("SE"))
}

func TestMentions(t *testing.T) {
	assert.Equal(t, "<@5>", messenger.UserMention(5))
	assert.Equal(t, "<#6>", messenger.ChannelMention(6))
}
