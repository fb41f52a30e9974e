package i18n_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/vacation-ledger/i18n"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestT_UsesLocaleFromContext(t *testing.T) {
	data := map[string]any{"Remaining": "2", "Category": "vacaciones", "Requested": "3"}

	en := i18n.T(context.Background(), "error.insufficient_balance", data)
	assert.Equal(t, "Insufficient balance: only 2 days remaining for vacaciones, requested 3", en)

	es := i18n.T(i18n.WithLocale(context.Background(), "es"), "error.insufficient_balance", data)
	assert.Equal(t, "Saldo insuficiente: solo quedan 2 días de vacaciones, solicitados 3", es)
}

func TestT_FallsBack(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), "fr")
	assert.Equal(t, "Internal server error", i18n.T(ctx, "error.internal"), "unknown locale uses default")
	assert.Equal(t, "no.such.key", i18n.T(ctx, "no.such.key"))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"es-ES,es;q=0.9,en;q=0.8", "es"},
		{"en-US", "en"},
		{"de-DE", "en"},
		{"fr;q=0.9, es;q=0.5", "es"},
		{"es-MX", "es"},
		{"not a header;;q=x", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, i18n.Match(tt.header))
		})
	}
	assert.ElementsMatch(t, []string{"en", "es"}, i18n.Supported())
}
