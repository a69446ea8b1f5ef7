package markets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileMappingSource_FetchMappings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.json")
	const body = `[{"MarketIDA":"market-a-1","ConditionIDB":"condition-b-1","YesTokenA":"yes-a","NoTokenA":"no-a","YesTokenB":"yes-b","NoTokenB":"no-b"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	src := NewFileMappingSource(path)
	mappings, err := src.FetchMappings(context.Background())
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	require.Equal(t, "market-a-1", mappings[0].MarketIDA)
}

func TestFileMappingSource_MissingFile(t *testing.T) {
	src := NewFileMappingSource("/nonexistent/path/mappings.json")
	_, err := src.FetchMappings(context.Background())
	require.Error(t, err)
}
