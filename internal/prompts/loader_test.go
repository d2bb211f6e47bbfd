package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(AgentsFile, "company-research")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Company Research Agent")
	assert.Contains(t, prompt, "{{.CompanyName}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(AgentsFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ChatFallbacks(t *testing.T) {
	ClearCache()

	assert.Equal(t, "Start the interview.", MustGet(ChatFile, "opening-message"))
	assert.Equal(t, "I didn't catch that.", MustGet(ChatFile, "fallback-empty-reply"))
}

func TestRender(t *testing.T) {
	ClearCache()

	prompt, err := Render(AgentsFile, "hr-answers", map[string]string{
		"CompanyName":    "Acme",
		"JobRole":        "Engineer",
		"JobDescription": "Go services",
		"ResumeContent":  "Built things",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, `Why do you want to join Acme?`)
	assert.NotContains(t, prompt, "{{.")
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}!"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", Format(template, data))
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	assert.Equal(t, template, Format(template, map[string]string{}))
}

func TestList_EveryCatalogueParses(t *testing.T) {
	ClearCache()

	for _, file := range []string{AgentsFile, ChatFile, GameFile} {
		keys, err := List(file)
		require.NoError(t, err, file)
		assert.NotEmpty(t, keys)
		for _, k := range keys {
			p := MustGet(file, k)
			assert.NotEmpty(t, strings.TrimSpace(p), "%s/%s", file, k)
		}
	}

	keys, err := List(GameFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"checklist", "fallback-jd", "fallback-previous-questions", "grade-resume", "quiz"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get(ChatFile, "mock-interviewer")
	require.NoError(t, err)
	prompt2, err := Get(ChatFile, "mock-interviewer")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
