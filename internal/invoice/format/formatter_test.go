package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumberTokens(t *testing.T) {
	issuedAt := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		template string
		seq      int64
		want     string
	}{
		{"СЧ-{YYYY}-{SEQ4}", 12, "СЧ-2026-0012"},
		{"INV-{YYYY}{MM}{DD}-{SEQ6}", 1, "INV-20260307-000001"},
		{"{YY}/{SEQ}", 345, "26/345"},
	}

	for _, tc := range cases {
		got, err := Number(tc.template, issuedAt, tc.seq)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestNumberRejectsBadInput(t *testing.T) {
	issuedAt := time.Now()

	_, err := Number("", issuedAt, 1)
	assert.Error(t, err)

	_, err = Number("СЧ-{SEQ4}", issuedAt, 0)
	assert.Error(t, err)

	_, err = Number("СЧ-{UNKNOWN}", issuedAt, 1)
	assert.Error(t, err)
}
