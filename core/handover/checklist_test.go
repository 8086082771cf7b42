package handover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core"
)

func TestNewChecklist(t *testing.T) {
	cl := NewChecklist()
	assert.Len(t, cl, len(SectionOrder))
	for _, section := range SectionOrder {
		require.Contains(t, cl, section)
		for item, checked := range cl[section] {
			assert.False(t, checked, "%s.%s should start unchecked", section, item)
		}
	}
	assert.Equal(t, 25, ItemCount())
}

func TestChecklistCompletion(t *testing.T) {
	cl := NewChecklist()
	assert.Equal(t, float64(0), cl.CompletionPercentage())
	assert.False(t, cl.IsComplete())

	// check all of one section (5 of 25 items)
	for _, item := range SectionItems(SectionTechnicalSetup) {
		cl[SectionTechnicalSetup][item] = true
	}
	assert.InDelta(t, 20.0, cl.CompletionPercentage(), .1)
	assert.False(t, cl.IsComplete())

	bySection := cl.SectionCompletion()
	assert.Equal(t, float64(100), bySection[SectionTechnicalSetup])
	assert.Equal(t, float64(0), bySection[SectionCorePages])

	for section, items := range checklistItems {
		for _, item := range items {
			cl[section][item] = true
		}
	}
	assert.Equal(t, float64(100), cl.CompletionPercentage())
	assert.True(t, cl.IsComplete())
}

func TestUpdateChecklistValidate(t *testing.T) {
	tests := []struct {
		name    string
		uc      UpdateChecklist
		wantErr string
	}{
		{
			name: "valid",
			uc:   UpdateChecklist{Items: Checklist{SectionCorePages: {"home_completed": true}}},
		},
		{
			name:    "unknown section",
			uc:      UpdateChecklist{Items: Checklist{"nope": {"x": true}}},
			wantErr: "unknown section: nope",
		},
		{
			name:    "unknown item",
			uc:      UpdateChecklist{Items: Checklist{SectionCorePages: {"nope": true}}},
			wantErr: "unknown item: core_pages.nope",
		},
		{
			name: "unknown notes section",
			uc: UpdateChecklist{
				Items:        Checklist{SectionCorePages: {"home_completed": true}},
				SectionNotes: map[string]string{"nope": "n"},
			},
			wantErr: "unknown section: nope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.uc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			var msgs []string
			for _, fe := range vErr.Fields {
				msgs = append(msgs, fe.Error)
			}
			assert.Contains(t, msgs, tt.wantErr)
		})
	}
}
