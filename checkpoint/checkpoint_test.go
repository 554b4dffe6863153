package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	testData := map[string]struct {
		uri      string
		expected Store
		err      error
	}{
		"bare path":      {uri: "./checkpoints", expected: &File{Dir: "./checkpoints"}},
		"file uri":       {uri: "file:///var/lib/demandcast", expected: &File{Dir: "/var/lib/demandcast"}},
		"empty":          {uri: "", expected: &File{}},
		"unknown scheme": {uri: "s3://bucket/models", err: ErrUnknownScheme},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			store, err := Open(ctx, td.uri)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, store)
		})
	}
}

func TestOpenRedisUnreachable(t *testing.T) {
	_, err := Open(context.Background(), "redis://127.0.0.1:1/0")
	assert.Error(t, err)
}
