//go:build !tesseract

package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lpr-gate/pkg/log"
)

func TestNew_TesseractWithoutBuildTag(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Recognizer = "tesseract"

	_, err := New(context.Background(), cfg, log.Discard())
	require.ErrorContains(t, err, "-tags tesseract")
	require.ErrorContains(t, err, "LPR_RECOGNIZER=rekognition")
}
