package notion

import (
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
)

// Properties é o corpo de escrita de uma página. Valores nil são descartados
// antes do envio.
type Properties = notionapi.Properties

// Property é um valor de escrita ou lido de uma página.
type Property = notionapi.Property

// PropertySchema é a definição de uma coluna do database.
type PropertySchema struct {
	ID   string
	Name string
	Type string
}

type Page struct {
	ID         string
	URL        string
	Properties notionapi.Properties
}

func pageFrom(p *notionapi.Page) *Page {
	if p == nil {
		return nil
	}
	return &Page{ID: p.ID.String(), URL: p.URL, Properties: p.Properties}
}

// Title etc. montam valores de escrita. Vazio vira nil quando a API não
// aceita string vazia para o tipo.

func Title(content string) Property {
	return notionapi.TitleProperty{Title: richText(content)}
}

func Text(content string) Property {
	return notionapi.RichTextProperty{RichText: richText(content)}
}

func Email(addr string) Property {
	if addr == "" {
		return nil
	}
	return notionapi.EmailProperty{Email: addr}
}

func Phone(number string) Property {
	if number == "" {
		return nil
	}
	return notionapi.PhoneNumberProperty{PhoneNumber: number}
}

func Select(name string) Property {
	if name == "" {
		return nil
	}
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

func MultiSelect(names ...string) Property {
	opts := make([]notionapi.Option, 0, len(names))
	for _, n := range names {
		if n != "" {
			opts = append(opts, notionapi.Option{Name: n})
		}
	}
	return notionapi.MultiSelectProperty{MultiSelect: opts}
}

func Number(v *float64) Property {
	if v == nil {
		return nil
	}
	return notionapi.NumberProperty{Number: *v}
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: content}}}
}

// PlainText extrai o texto de uma propriedade title, rich_text, email,
// phone_number, select, multi_select ou number. Propriedade ausente -> "".
func (p Page) PlainText(name string) string {
	return PropertyText(p.Properties[name])
}

// PropertyText cobre tanto os valores montados aqui quanto os decodificados
// pelo SDK, que chegam como ponteiro.
func PropertyText(prop Property) string {
	switch v := prop.(type) {
	case notionapi.TitleProperty:
		return joinRich(v.Title)
	case *notionapi.TitleProperty:
		return joinRich(v.Title)
	case notionapi.RichTextProperty:
		return joinRich(v.RichText)
	case *notionapi.RichTextProperty:
		return joinRich(v.RichText)
	case notionapi.EmailProperty:
		return v.Email
	case *notionapi.EmailProperty:
		return v.Email
	case notionapi.PhoneNumberProperty:
		return v.PhoneNumber
	case *notionapi.PhoneNumberProperty:
		return v.PhoneNumber
	case notionapi.SelectProperty:
		return v.Select.Name
	case *notionapi.SelectProperty:
		return v.Select.Name
	case notionapi.MultiSelectProperty:
		return joinOptions(v.MultiSelect)
	case *notionapi.MultiSelectProperty:
		return joinOptions(v.MultiSelect)
	case notionapi.NumberProperty:
		return formatNumber(v.Number)
	case *notionapi.NumberProperty:
		return formatNumber(v.Number)
	}
	return ""
}

func joinRich(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range parts {
		switch {
		case r.PlainText != "":
			b.WriteString(r.PlainText)
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		}
	}
	return b.String()
}

func joinOptions(opts []notionapi.Option) string {
	names := make([]string, 0, len(opts))
	for _, o := range opts {
		names = append(names, o.Name)
	}
	return strings.Join(names, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
