package entity

import "strings"

// Tier é o nível de qualificação do lead.
type Tier string

const (
	TierHigh   Tier = "Alto"
	TierMedium Tier = "Médio"
	TierLow    Tier = "Baixo"
)

// ParseTier aceita apenas os três rótulos exatos (após trim).
func ParseTier(s string) (Tier, bool) {
	switch t := Tier(strings.TrimSpace(s)); t {
	case TierHigh, TierMedium, TierLow:
		return t, true
	default:
		return "", false
	}
}

func (t Tier) String() string {
	return string(t)
}
