package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantErr   bool
		narrative string
		sections  []string
	}{
		{
			name:      "assistant object",
			text:      `{"assistant":{"content":"Hello","bullets":[]}}`,
			narrative: "Hello",
		},
		{
			name:      "assistant string",
			text:      `{"assistant":"Hi there"}`,
			narrative: "Hi there",
		},
		{
			name:     "summary only",
			text:     `{"summary":{"output":"Revenue grew"}}`,
			sections: []string{"summary"},
		},
		{
			name:      "wrapped in prose",
			text:      "Here you go:\n```json\n{\"assistant\":{\"content\":\"ok\"},\"memo\":{\"output\":\"m\"}}\n```",
			narrative: "ok",
			sections:  []string{"memo"},
		},
		{
			name:    "empty",
			text:    "   ",
			wantErr: true,
		},
		{
			name:    "no json",
			text:    "plain text answer",
			wantErr: true,
		},
		{
			name:    "no recognizable section",
			text:    `{"routing":[],"foo":1}`,
			wantErr: true,
		},
		{
			name:    "empty assistant and null sections",
			text:    `{"assistant":{"content":""},"summary":null}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseArtifact(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.narrative, a.Narrative())
			assert.Equal(t, tt.sections, a.Sections())
		})
	}
}

func TestArtifact_ValidateNil(t *testing.T) {
	var a *Artifact
	assert.ErrorIs(t, a.Validate(), ErrSchemaValidation)
}
