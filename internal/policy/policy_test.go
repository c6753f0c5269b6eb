package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyByContentType(t *testing.T) {
	table := Default()

	cases := []struct {
		contentType string
		ext         string
		want        string
	}{
		{"image/jpeg", ".jpg", CategoryImage},
		{"image/png", "", CategoryImage},
		{"application/pdf", ".pdf", CategoryDocument},
		{"", ".docx", CategoryDocument},
		{"application/vnd.ms-excel", ".xls", CategorySpreadsheet},
		{"video/mp4", ".mp4", CategoryVideo},
		{"audio/mpeg", ".mp3", CategoryAudio},
	}
	for _, tc := range cases {
		got := table.Classify(tc.contentType, tc.ext)
		require.NotNil(t, got, "content_type=%s ext=%s", tc.contentType, tc.ext)
		assert.Equal(t, tc.want, got.Name)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	table := Default()
	assert.Nil(t, table.Classify("application/x-tar", ".tar"))
	assert.Nil(t, table.Classify("", ""))
}

func TestPublicationExtensionWins(t *testing.T) {
	table := Default()

	// The declared content type must not matter for .jwpub, even one
	// that belongs to another category.
	for _, ct := range []string{"application/octet-stream", "image/jpeg", "video/mp4", ""} {
		got := table.Classify(ct, ".jwpub")
		require.NotNil(t, got)
		assert.Equal(t, CategoryPublication, got.Name)
	}

	got := table.Classify("", ".JWPUB")
	require.NotNil(t, got)
	assert.Equal(t, CategoryPublication, got.Name)
}

func TestOctetStreamWithoutPublicationExt(t *testing.T) {
	table := Default()

	// A bare octet-stream still reaches the publication category via
	// its content-type set, but only after every earlier category had
	// its chance.
	got := table.Classify("application/octet-stream", ".bin")
	require.NotNil(t, got)
	assert.Equal(t, CategoryPublication, got.Name)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "10.0 МБ", FormatSize(10))
	assert.Equal(t, "4.8 МБ", FormatSize(4.8))
	assert.Equal(t, "1023.0 МБ", FormatSize(1023))
	assert.Equal(t, "1.0 ГБ", FormatSize(1024))
	assert.Equal(t, "1.5 ГБ", FormatSize(1536))
}

func TestAllowedDescription(t *testing.T) {
	desc := Default().AllowedDescription()
	assert.Contains(t, desc, "Изображения")
	assert.Contains(t, desc, ".jwpub")
	assert.Contains(t, desc, "до 10.0 МБ")
}
