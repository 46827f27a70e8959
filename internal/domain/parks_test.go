package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parks-rag/internal/domain"
)

func TestParkRegistry_Find_CaseInsensitive(t *testing.T) {
	registry := domain.NewParkRegistry()

	code, ok := registry.Find("What are the best hikes in YELLOWSTONE?")
	assert.True(t, ok)
	assert.Equal(t, "yell", code)

	code, ok = registry.Find("tell me about yosemite valley")
	assert.True(t, ok)
	assert.Equal(t, "yose", code)
}

func TestParkRegistry_Find_NoMatch(t *testing.T) {
	registry := domain.NewParkRegistry()

	code, ok := registry.Find("What should I pack for a camping trip?")
	assert.False(t, ok)
	assert.Equal(t, "", code)
}

func TestParkRegistry_Find_LongestVariantWins(t *testing.T) {
	registry := domain.NewParkRegistry()

	// "grand canyon" must not be shadowed by any shorter variant contained
	// in the same text.
	code, ok := registry.Find("Is the Grand Canyon open in winter?")
	assert.True(t, ok)
	assert.Equal(t, "grca", code)

	// "great smoky mountains" and "great smoky" resolve to the same code
	// regardless of which variant matches first.
	code, ok = registry.Find("wildlife in the Great Smoky Mountains")
	assert.True(t, ok)
	assert.Equal(t, "grsm", code)
}

func TestParkRegistry_Find_SharedCodeVariants(t *testing.T) {
	registry := domain.NewParkRegistry()

	code, ok := registry.Find("sequoia groves")
	assert.True(t, ok)
	assert.Equal(t, "seki", code)

	code, ok = registry.Find("waterfalls in Kings Canyon")
	assert.True(t, ok)
	assert.Equal(t, "seki", code)
}

func TestParkRegistry_FindAll_DistinctCodes(t *testing.T) {
	registry := domain.NewParkRegistry()

	codes := registry.FindAll("Comparing Yellowstone and Yosemite: both offer backcountry permits.")
	assert.Len(t, codes, 2)
	assert.Contains(t, codes, "yell")
	assert.Contains(t, codes, "yose")

	// Sequoia and Kings Canyon share a code and must count once.
	codes = registry.FindAll("Sequoia and Kings Canyon are managed together.")
	assert.Equal(t, []string{"seki"}, codes)

	assert.Empty(t, registry.FindAll("no parks here"))
}

func TestParkRegistry_DisplayName(t *testing.T) {
	registry := domain.NewParkRegistry()

	assert.Equal(t, "Yellowstone National Park", registry.DisplayName("yell"))
	assert.Equal(t, "Sequoia and Kings Canyon National Parks", registry.DisplayName("seki"))
	// Unknown codes fall back to the upper-cased code so prompts stay readable.
	assert.Equal(t, "XXXX", registry.DisplayName("xxxx"))
}

func TestParkRegistry_Known(t *testing.T) {
	registry := domain.NewParkRegistry()

	assert.True(t, registry.Known("zion"))
	assert.False(t, registry.Known("abcd"))
	assert.False(t, registry.Known(""))
}

func TestParkRegistry_Codes_Sorted(t *testing.T) {
	registry := domain.NewParkRegistry()

	codes := registry.Codes()
	assert.NotEmpty(t, codes)
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
	assert.Contains(t, codes, "yell")
	assert.Contains(t, codes, "crla")
}
