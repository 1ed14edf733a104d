package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-process/internal/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		cfg       logging.Config
		wantLevel zapcore.Level
		wantErr   bool
	}{
		"defaults":    {wantLevel: zapcore.InfoLevel},
		"debug":       {cfg: logging.Config{Level: "debug", Encoding: "console", Development: true}, wantLevel: zapcore.DebugLevel},
		"warn json":   {cfg: logging.Config{Level: "warn", Encoding: "json"}, wantLevel: zapcore.WarnLevel},
		"bad level":   {cfg: logging.Config{Level: "loud"}, wantErr: true},
		"bad encoder": {cfg: logging.Config{Encoding: "xml"}, wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			logger, err := logging.New(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantLevel, logger.Level())
		})
	}
}

func TestNewWritesToOutputPaths(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Config{OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"hello"`)
	assert.Contains(t, string(content), `"timestamp"`)
}
