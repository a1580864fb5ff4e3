package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// DefaultBaseURL é a raiz usada pelo SDK.
const DefaultBaseURL = "https://api.notion.com/v1"

var ErrSchemaUnavailable = errors.New("notion: propriedades do database indisponíveis")

type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
}

// NewClient monta o client do SDK. baseURL diferente do padrão redireciona as
// chamadas (proxy ou servidor de teste).
func NewClient(baseURL, token, version, databaseID string) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if base := strings.TrimRight(baseURL, "/"); base != "" && base != DefaultBaseURL {
		if target, err := url.Parse(base); err == nil {
			httpClient.Transport = &rebaseTransport{target: target, next: http.DefaultTransport}
		}
	}

	opts := []notionapi.ClientOption{notionapi.WithHTTPClient(httpClient)}
	if version != "" {
		opts = append(opts, notionapi.WithVersion(version))
	}
	return &Client{
		api:        notionapi.NewClient(notionapi.Token(token), opts...),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

// DatabaseSchema busca as colunas do database configurado.
func (c *Client) DatabaseSchema(ctx context.Context) (map[string]PropertySchema, error) {
	db, err := c.api.Database.Get(ctx, c.databaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaUnavailable, err)
	}
	if len(db.Properties) == 0 {
		return nil, ErrSchemaUnavailable
	}

	out := make(map[string]PropertySchema, len(db.Properties))
	for name, cfg := range db.Properties {
		if cfg == nil {
			continue
		}
		out[name] = PropertySchema{ID: string(cfg.GetID()), Name: name, Type: string(cfg.GetType())}
	}
	return out, nil
}

// Query procura páginas cuja propriedade rich_text é igual a value.
func (c *Client) Query(ctx context.Context, property, value string) ([]Page, error) {
	resp, err := c.api.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{Equals: value},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("erro query notion: %w", err)
	}

	pages := make([]Page, 0, len(resp.Results))
	for i := range resp.Results {
		pages = append(pages, *pageFrom(&resp.Results[i]))
	}
	return pages, nil
}

func (c *Client) Create(ctx context.Context, props Properties) (*Page, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: compact(props),
	})
	if err != nil {
		return nil, fmt.Errorf("erro create notion: %w", err)
	}
	return pageFrom(page), nil
}

func (c *Client) Update(ctx context.Context, pageID string, props Properties) (*Page, error) {
	page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: compact(props),
	})
	if err != nil {
		return nil, fmt.Errorf("erro update notion: %w", err)
	}
	return pageFrom(page), nil
}

func (c *Client) Get(ctx context.Context, pageID string) (*Page, error) {
	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, fmt.Errorf("erro get notion: %w", err)
	}
	return pageFrom(page), nil
}

func compact(props Properties) notionapi.Properties {
	out := make(notionapi.Properties, len(props))
	for name, v := range props {
		if v != nil {
			out[name] = v
		}
	}
	return out
}

// rebaseTransport troca a raiz padrão do SDK pela raiz configurada.
type rebaseTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rebaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	path := strings.TrimPrefix(r.URL.Path, "/v1")
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.URL.Path = strings.TrimRight(t.target.Path, "/") + path
	r.Host = t.target.Host
	return t.next.RoundTrip(r)
}
