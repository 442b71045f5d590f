package placeholder

import (
	"testing"

	"github.com/debemdeboas/the-draftroom/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]config.PlaceholderConfig{
		{Code: "{{client_name}}", Label: "Client name", Group: "Client"},
		{Code: "{{date}}", Group: "General"},
		{Code: "{{client_address}}", Label: "Client address", Group: "Client"},
		{Code: " {{amount}} "},
	})
	require.NoError(t, err)
	return c
}

func TestNewCatalog(t *testing.T) {
	c := testCatalog(t)
	require.Equal(t, 4, c.Len())

	p, ok := c.Lookup("{{date}}")
	require.True(t, ok)
	assert.Equal(t, "date", p.Label, "label defaults to the token name")

	p, ok = c.Lookup("{{amount}}")
	require.True(t, ok, "codes are trimmed")
	assert.Equal(t, defaultGroup, p.Group)
}

func TestNewCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []config.PlaceholderConfig
	}{
		{"not a token", []config.PlaceholderConfig{{Code: "client_name"}}},
		{"trailing text", []config.PlaceholderConfig{{Code: "{{a}} tail"}}},
		{"duplicate", []config.PlaceholderConfig{{Code: "{{a}}"}, {Code: "{{a}}"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestDefaultPlaceholdersAreValid(t *testing.T) {
	c, err := NewCatalog(config.DefaultPlaceholders())
	require.NoError(t, err)
	assert.Equal(t, len(config.DefaultPlaceholders()), c.Len())
}

func TestGroups(t *testing.T) {
	groups := testCatalog(t).Groups()
	require.Len(t, groups, 2)

	assert.Equal(t, "Client", groups[0].Name)
	assert.Len(t, groups[0].Placeholders, 2)
	assert.Equal(t, "{{client_address}}", groups[0].Placeholders[1].Code)

	assert.Equal(t, "General", groups[1].Name)
	assert.Len(t, groups[1].Placeholders, 2)
}

func TestResolve(t *testing.T) {
	c := testCatalog(t)

	p, err := c.Resolve("{{client_name}}")
	require.NoError(t, err)
	assert.Equal(t, "Client name", p.Label)

	p, err = c.Resolve("{{custom_field}}")
	require.NoError(t, err, "well-formed tokens outside the catalog are allowed")
	assert.Equal(t, "custom_field", p.Label)

	_, err = c.Resolve("<b>nope</b>")
	assert.ErrorIs(t, err, ErrUnknownPlaceholder)
}

func TestFind(t *testing.T) {
	c := testCatalog(t)
	usage := c.Find([]byte("Dear {{ client_name }}, invoice of {{amount}} due {{due_date}}"))
	require.Len(t, usage, 4)

	used := map[string]bool{}
	for _, u := range usage {
		used[u.Code] = u.Used
	}
	assert.True(t, used["{{client_name}}"])
	assert.True(t, used["{{amount}}"])
	assert.False(t, used["{{date}}"])
	assert.False(t, used["{{client_address}}"])

	assert.Equal(t, []string{"{{due_date}}"}, c.Unknown([]byte("Dear {{ client_name }}, due {{due_date}} {{due_date}}")))
}

func TestName(t *testing.T) {
	assert.Equal(t, "client_name", Name("{{ client_name }}"))
	assert.Equal(t, "", Name("client_name"))
	assert.True(t, IsToken("{{x.y-z}}"))
	assert.False(t, IsToken("{{}}"))
}
