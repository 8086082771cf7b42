package attachment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumano/oms/core"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		size     int64
		wantErr  string
	}{
		{name: "valid pdf", fileName: "contract.pdf", size: 1024},
		{name: "valid image", fileName: "logo.PNG", size: 2048},
		{name: "at limit", fileName: "big.zip", size: core.Conf.MaxFileSize},
		{name: "too big", fileName: "big.zip", size: core.Conf.MaxFileSize + 1, wantErr: "maximum size"},
		{name: "empty", fileName: "empty.txt", size: 0, wantErr: "file is empty"},
		{name: "no extension", fileName: "README", size: 10, wantErr: "no extension"},
		{name: "executable", fileName: "setup.exe", size: 10, wantErr: "executable files are not allowed"},
		{name: "script", fileName: "hack.vbs", size: 10, wantErr: "executable files are not allowed"},
		{name: "javascript", fileName: "app.js", size: 10, wantErr: "executable files are not allowed"},
		{name: "unknown type", fileName: "disk.iso", size: 10, wantErr: "file type not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.fileName, tt.size)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.NotEmpty(t, vErr.Fields)
			var found bool
			for _, fe := range vErr.Fields {
				if fe.Field == "file" && strings.Contains(fe.Error, tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected a field error containing %q, got %+v", tt.wantErr, vErr.Fields)
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", CategoryImage},
		{"image/jpeg", CategoryImage},
		{"application/pdf", CategoryDocument},
		{"text/plain; charset=utf-8", CategoryDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", CategoryDocument},
		{"application/vnd.ms-excel", CategorySpreadsheet},
		{"text/csv", CategorySpreadsheet},
		{"application/vnd.ms-powerpoint", CategoryPresentation},
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", CategoryPresentation},
		{"application/vnd.oasis.opendocument.presentation", CategoryPresentation},
		{"application/zip", CategoryArchive},
		{"application/gzip", CategoryArchive},
		{"application/octet-stream", CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.contentType))
		})
	}
}
