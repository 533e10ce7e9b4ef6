package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"arena-server/game"
	"arena-server/protocol"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Alice", "Alice"},
		{"  spaced   out  ", "spaced out"},
		{"bad\x00\x07name", "badname"},
		{"", defaultName},
		{"\t\n", defaultName},
		{strings.Repeat("x", 40), strings.Repeat("x", maxNameLen)},
		{"ÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅ", "ÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅ"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), "sanitizeName(%q)", tt.in)
	}
}

func TestSanitizeCosmetic(t *testing.T) {
	assert.Nil(t, sanitizeCosmetic(nil))

	longKey := strings.Repeat("k", maxCosmeticLen+1)
	out := sanitizeCosmetic(map[string]string{
		"color": "#ff0000",
		"":      "ignored",
		"decal": strings.Repeat("z", maxCosmeticLen+1),
		longKey: "v",
	})
	assert.Equal(t, map[string]string{"color": "#ff0000"}, out)

	big := make(map[string]string)
	for i := range 20 {
		big[string(rune('a'+i))] = "v"
	}
	assert.Len(t, sanitizeCosmetic(big), maxCosmeticKeys)
}

func TestToInput(t *testing.T) {
	angle := 1.25
	in := toInput(protocol.InputMsg{Forward: true, Boost: true, FireLight: true, Angle: &angle})
	assert.Equal(t, game.Input{Forward: true, Boost: true, FireLight: true, TargetAngle: &angle}, in)
}

func TestProfileUsesIdentity(t *testing.T) {
	guest := &Client{}
	p := guest.profile("  Rook ", "advanced")
	assert.Equal(t, "Rook", p.Name)
	assert.Equal(t, game.ParseTier("advanced"), p.Tier)

	signed := &Client{identity: &Identity{Subject: "u", Name: "Queen", Tier: "elite"}}
	p = signed.profile("Pawn", "")
	assert.Equal(t, "Queen", p.Name)
	assert.Equal(t, game.TierElite, p.Tier)
}
