package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportKey(t *testing.T) {
	assert.Equal(t, "exports/c1/e1.xlsx", ExportKey("c1", "e1"))
}

func TestPresignExpire(t *testing.T) {
	s := &S3{cfg: S3Config{}}
	assert.Equal(t, "15m0s", s.PresignExpire().String())
	s.cfg.PresignExpireMinutes = 60
	assert.Equal(t, "1h0m0s", s.PresignExpire().String())
}
