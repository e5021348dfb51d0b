package depositor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SettlementEngine/internal/model"
)

func TestIndex_RegisterAndDeregister(t *testing.T) {
	x := NewIndex()
	x.Register("101", "1")
	x.Register("101", "2")
	assert.Equal(t, []model.AgentID{"1", "2"}, x.Holders("101"))

	x.Deregister("101", "1")
	assert.Equal(t, []model.AgentID{"2"}, x.Holders("101"))
	assert.Empty(t, x.Banks("1"))
	assert.Equal(t, []model.AgentID{"101"}, x.Banks("2"))
}

func TestIndex_RemoveAgentEverywhere(t *testing.T) {
	x := NewIndex()
	x.Register("101", "1")
	x.Register("102", "1")
	x.Register("102", "3")

	x.RemoveAgent("1")

	assert.Empty(t, x.Holders("101"))
	assert.Equal(t, []model.AgentID{"3"}, x.Holders("102"))
	assert.Empty(t, x.Banks("1"))
	assert.False(t, x.HasHolder("102", "1"))
	assert.True(t, x.HasHolder("102", "3"))
}

func TestIndex_IgnoresNullIDs(t *testing.T) {
	x := NewIndex()
	x.Register("", "1")
	x.Register("101", "")
	assert.Empty(t, x.Banks("1"))
	assert.Empty(t, x.Holders("101"))
}

func TestIndex_DeregisterUnknownIsNoop(t *testing.T) {
	x := NewIndex()
	x.Deregister("999", "1")
	x.RemoveAgent("1")
	assert.Empty(t, x.Holders("999"))
}
