// Package contact decide para qual número o bridge manda mensagens.
package contact

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"

	"github.com/xavierca1/lead-bridge/internal/entity"
)

const DefaultRegion = "BR"

// minDigits descarta locais de email que só têm um número curto (ex.: ana2024@).
const minDigits = 10

type Normalizer struct {
	Region string
}

func NewNormalizer(region string) *Normalizer {
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{Region: strings.ToUpper(region)}
}

// Normalize devolve o número em E.164. Sem parse válido, devolve só os dígitos
// mantendo o + da entrada, ou "" quando não há dígitos.
func (n *Normalizer) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, n.Region)
	if err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	digits := digitsOf(trimmed)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return "+" + digits
	}
	return digits
}

// Resolver segue a cadeia: telefone do evento (já mesclado com o do registro),
// depois dígitos do local do email.
type Resolver struct {
	phones *Normalizer
}

func NewResolver(n *Normalizer) *Resolver {
	if n == nil {
		n = NewNormalizer(DefaultRegion)
	}
	return &Resolver{phones: n}
}

func (r *Resolver) Resolve(lead entity.Lead) string {
	if phone := r.phones.Normalize(lead.Phone); phone != "" {
		return phone
	}
	return r.fromEmail(lead.Email)
}

func (r *Resolver) fromEmail(email string) string {
	local, _, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok {
		return ""
	}
	digits := digitsOf(local)
	if len(digits) < minDigits {
		return ""
	}
	return r.phones.Normalize("+" + digits)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
