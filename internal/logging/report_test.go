package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noir/internal/errs"
)

func TestReportNilErrReturnsZero(t *testing.T) {
	var stderr bytes.Buffer
	log := zerolog.Nop()
	code := Report(log, &stderr, "noir", nil)
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr.String())
}

func TestReportFormatsNumberedError(t *testing.T) {
	var stderr bytes.Buffer
	log := zerolog.Nop()
	err := errs.NewAt(errs.CodeBadField, 12, "bad pitch")
	code := Report(log, &stderr, "noir", err)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "noir:")
	assert.Contains(t, stderr.String(), "12")
	assert.Contains(t, stderr.String(), "bad pitch")
}

func TestReportFormatsPlainError(t *testing.T) {
	var stderr bytes.Buffer
	log := zerolog.Nop()
	code := Report(log, &stderr, "noir", errors.New("boom"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "noir: boom\n")
}

func TestRecoverCatchesFaultError(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		errs.Fault("bad caller contract")
		return nil
	}
	err := run()
	require.Error(t, err)
}

func TestRecoverLeavesNonErrorPanicsToPropagate(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		panic("not an error value")
	}
	assert.Panics(t, func() { run() })
}

func TestRecoverNoPanicLeavesErrNil(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		return nil
	}
	assert.NoError(t, run())
}
