package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-resttemplate/internal/domain"
	"github.com/samvad-hq/samvad-resttemplate/internal/logger"
	"github.com/samvad-hq/samvad-resttemplate/pkg/resttemplate"
)

// DemoReport summarizes the product walkthrough.
type DemoReport struct {
	Listed     []domain.Product
	Created    *domain.Product
	ListStatus int
	PostStatus int
}

// RunDemo lists products and creates one against the virtual product service
// rooted at baseURL (for example "http://ProductService/api/Product").
func RunDemo(ctx context.Context, client *resttemplate.Client, baseURL string, newProduct domain.Product, log logger.Logger) (*DemoReport, error) {
	if client == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	base := strings.TrimRight(baseURL, "/")

	list, err := resttemplate.GetForEntity[[]domain.Product](ctx, client, base+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	report := &DemoReport{Listed: list.Body, ListStatus: list.StatusCode}
	log.InfoObj("products listed", "demo_list", map[string]any{
		"status": list.StatusCode,
		"count":  len(list.Body),
	})

	created, err := resttemplate.PostForEntity[domain.Product](ctx, client, base, newProduct, resttemplate.NewHeader("Accept", "application/json"))
	if err != nil {
		return report, fmt.Errorf("create product: %w", err)
	}
	report.PostStatus = created.StatusCode
	if created.HasBody {
		p := created.Body
		report.Created = &p
	}
	log.InfoObj("product created", "demo_create", map[string]any{
		"status":   created.StatusCode,
		"has_body": created.HasBody,
	})
	return report, nil
}
