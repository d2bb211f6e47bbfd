package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "uploaded markdown resume with CRLF",
			input: "# Priya Raman  \r\npriya@example.com  |   +1 555 0100\r\n\r\n\r\n\r\n" +
				"## Experience\r\n### Acme Corp, Senior Engineer\r\n- Led   migration to Go\r\n" +
				"  - Cut p99 latency 40%\r\n\r\n## Skills\r\nGo,\tPostgreSQL,   Kafka\r\n",
			want: "# Priya Raman\npriya@example.com | +1 555 0100\n\n" +
				"## Experience\n### Acme Corp, Senior Engineer\n- Led   migration to Go\n" +
				"  - Cut p99 latency 40%\n\n## Skills\nGo, PostgreSQL, Kafka",
		},
		{
			name:  "classic mac line endings",
			input: "Summary\rBackend engineer\r\rEducation",
			want:  "Summary\nBackend engineer\n\nEducation",
		},
		{
			name:  "indented heading is flushed left",
			input: "   ## Projects\n* Ledger   service",
			want:  "## Projects\n* Ledger   service",
		},
		{
			name:  "bullet glyphs keep their indent",
			input: "• Shipped billing\n· Mentored two engineers\n\t- Ran on-call",
			want:  "• Shipped billing\n· Mentored two engineers\n - Ran on-call",
		},
		{
			name:  "dash without space is prose",
			input: "-Remote   friendly",
			want:  "-Remote friendly",
		},
		{
			name:  "indented dates keep their column",
			input: "Experience\n    Acme Corp    2019 - 2023",
			want:  "Experience\n    Acme Corp 2019 - 2023",
		},
		{
			name:  "non-ascii survives",
			input: "Zürich   🚀 Café",
			want:  "Zürich 🚀 Café",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   \r\n \t \r\n",
			want:  "",
		},
		{
			name:  "resume layout",
			input: "# Jane Doe   \r\n\r\n\r\n\r\n## Experience\n- Built   billing   service\n  • Cut latency 40%\n\tSkills:  Go,   SQL",
			want:  "# Jane Doe\n\n## Experience\n- Built   billing   service\n  • Cut latency 40%\n Skills: Go, SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CleanText(got), "cleaning is idempotent")
		})
	}
}
