package usecase

import (
	"errors"
	"net/http"
)

// Kind é a categoria do erro na fronteira de cada componente.
type Kind int

const (
	KindUnknown Kind = iota
	// KindAuthentication: assinatura ausente ou inválida.
	KindAuthentication
	// KindValidation: campos obrigatórios faltando no evento.
	KindValidation
	// KindUpstream: Notion, Z-API ou SMTP falharam.
	KindUpstream
	// KindGeneration: o modelo de linguagem falhou. Nunca chega ao cliente.
	KindGeneration
	// KindSchedulingSkip: horário do lembrete já passou. Não é falha.
	KindSchedulingSkip
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindGeneration:
		return "generation"
	case KindSchedulingSkip:
		return "scheduling_skip"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func ValidationFailure(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func UpstreamFailure(code, message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: message, Err: err}
}

func GenerationFailure(err error) *Error {
	return &Error{Kind: KindGeneration, Code: "GENERATION_FAILED", Message: "geração de texto indisponível", Err: err}
}

// KindOf devolve a categoria de err, ou KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
