package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughReturnsLocationAsURL(t *testing.T) {
	url, err := Passthrough{}.Resolve(context.Background(), "https://bucket.example/doc.pdf", "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/doc.pdf", url)
}

func TestEscapePath(t *testing.T) {
	cases := map[string]string{
		"plain/path.pdf":        "plain/path.pdf",
		"o'brien/report.pdf":    `o\'brien/report.pdf`,
		"it's 'quoted'.pdf":     `it\'s \'quoted\'.pdf`,
		"":                      "",
	}

	for in, want := range cases {
		assert.Equal(t, want, escapePath(in), "input %q", in)
	}
}
