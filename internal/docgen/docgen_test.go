package docgen

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetLabel(t *testing.T) {
	assert.Equal(t, "Practical 05", SheetLabel("Practical", 5, true))
	assert.Equal(t, "Practical 5", SheetLabel("Practical", 5, false))
	assert.Equal(t, "Lab 12", SheetLabel("Lab", 12, true))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "IT1010_Practical_05.doc", Filename("IT1010", "Practical", 5, true))
	assert.Equal(t, "IT1010_Practical_5.doc", Filename("IT1010", "Practical", 5, false))
	// 空格清理
	assert.Equal(t, "IT1010_LabSheet_1.doc", Filename(" IT 1010 ", "Lab Sheet", 1, false))
}

func TestGenerateWritesFile(t *testing.T) {
	g, err := NewGenerator(t.TempDir())
	require.NoError(t, err)

	path, err := g.Generate(Sheet{
		StudentName:     "Dinuka",
		StudentID:       "IT22000000",
		ModuleName:      "Programming I",
		ModuleCode:      "IT1010",
		SheetType:       "Practical",
		PracticalNumber: 5,
		UseZeroPadding:  true,
		Template:        TemplateClassic,
		GeneratedAt:     time.Date(2026, 1, 7, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(b)
	assert.Contains(t, html, "Practical 05")
	assert.Contains(t, html, "IT1010")
	assert.Contains(t, html, "Dinuka")
	assert.Contains(t, html, "2026-01-07")
}

func TestGenerateUnknownTemplateFallsBack(t *testing.T) {
	g, err := NewGenerator(t.TempDir())
	require.NoError(t, err)

	path, err := g.Generate(Sheet{
		StudentName:     "Dinuka",
		ModuleCode:      "IT1010",
		ModuleName:      "Programming I",
		SheetType:       "Lab",
		PracticalNumber: 1,
		Template:        "no-such-template",
		GeneratedAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.FileExists(t, path)
}
