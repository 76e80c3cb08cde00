package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordMap_PageBlock tests the lookup and its not-found sentinel.
func TestRecordMap_PageBlock(t *testing.T) {
	m := &RecordMap{Blocks: map[string]*BlockRecord{
		"p1":    {Role: "reader", Value: &Block{ID: "p1"}},
		"empty": {Role: "none"},
	}}

	b, err := m.PageBlock("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", b.ID)

	_, err = m.PageBlock("empty")
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = m.PageBlock("absent")
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = (*RecordMap)(nil).PageBlock("p1")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

// TestCollection_DisplayName tests rich-name flattening and nil tolerance.
func TestCollection_DisplayName(t *testing.T) {
	c := &Collection{Name: RichValue{frag("My "), frag("Table")}}
	assert.Equal(t, "My Table", c.DisplayName())
	assert.Equal(t, "", (*Collection)(nil).DisplayName())
}

// TestUserValue_AsUser tests the exposed-name assembly.
func TestUserValue_AsUser(t *testing.T) {
	u := (&UserValue{ID: "u1", GivenName: "Ada", FamilyName: "Lovelace", ProfilePhoto: "p.jpg"}).AsUser()
	assert.Equal(t, "Ada Lovelace", u.FullName)
	assert.Equal(t, "Ada", u.FirstName)

	solo := (&UserValue{ID: "u2", GivenName: "Cher"}).AsUser()
	assert.Equal(t, "Cher", solo.FullName)
}

// TestRow_Accessors tests the reserved-key getters.
func TestRow_Accessors(t *testing.T) {
	r := Row{"id": "b1", "format": map[string]any{"page_cover": "x"}}
	assert.Equal(t, "b1", r.ID())
	assert.Equal(t, "x", r.Format()["page_cover"])

	assert.Equal(t, "", Row{}.ID())
	assert.Nil(t, Row{}.Format())
}
