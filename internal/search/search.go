// Package search mirrors ledger transactions into an Elasticsearch index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/export"
	"dompet/internal/log"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const (
	DefaultIndex = "dompet-transactions"

	bulkFlushBytes = 2048
	bulkWorkers    = 4
)

const mapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "project_id":  {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "author":      {"type": "keyword"},
      "category":    {"type": "keyword"},
      "type":        {"type": "keyword"},
      "month":       {"type": "keyword"},
      "description": {"type": "text"},
      "amount":      {"type": "long"},
      "date":        {"type": "date"},
      "created_at":  {"type": "date"}
    }
  }
}`

// Document is the indexed form of a transaction.
type Document struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id,omitempty"`
	Author      string    `json:"author,omitempty"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Month       string    `json:"month"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewDocument(tx core.Transaction) Document {
	return Document{
		ID:          tx.ID,
		ProjectID:   tx.ProjectID,
		UserID:      tx.UserID,
		Author:      tx.Author,
		Category:    string(tx.Category),
		Type:        export.RowType(tx.Category),
		Month:       string(core.MonthOf(tx.Date)),
		Description: tx.Description,
		Amount:      tx.Amount,
		Date:        tx.Date.UTC(),
		CreatedAt:   tx.CreatedAt.UTC(),
	}
}

type Config struct {
	Addresses  []string
	Index      string
	MaxRetries int
}

type Index struct {
	es     *elasticsearch.Client
	name   string
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) (*Index, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("missing ELASTICSEARCH_URL")
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = log.Discard()
	}

	retryBackoff := backoff.NewExponentialBackOff()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,

		// Retry on 429 TooManyRequests statuses
		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	return &Index{
		es:     es,
		name:   cfg.Index,
		logger: logger.WithComponent(log.ComponentSearch),
	}, nil
}

func (i *Index) Name() string { return "elasticsearch" }

// EnsureIndex creates the index with its mapping. An existing index is kept.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Create(i.name,
		i.es.Indices.Create.WithBody(strings.NewReader(mapping)),
		i.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if res.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return fmt.Errorf("create index %s: %s", i.name, res.Status())
	}
	i.logger.InfoContext(ctx, "Created search index", "index", i.name)
	return nil
}

func (i *Index) Upsert(ctx context.Context, tx core.Transaction) error {
	data, err := json.Marshal(NewDocument(tx))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	res, err := i.es.Index(i.name, bytes.NewReader(data),
		i.es.Index.WithDocumentID(tx.ID),
		i.es.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index %s: %w", tx.ID, err)
	}
	return checkResponse(res, "index "+tx.ID)
}

// Remove deletes the document for id. A missing document is not an error.
func (i *Index) Remove(ctx context.Context, id string) error {
	res, err := i.es.Delete(i.name, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, "delete "+id)
}

// Reindex bulk-loads every transaction. It returns an error when any item fails.
func (i *Index) Reindex(ctx context.Context, txs []core.Transaction) (int, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         i.name,
		Client:        i.es,
		FlushBytes:    bulkFlushBytes,
		NumWorkers:    bulkWorkers,
		FlushInterval: 10 * time.Second,
	})
	if err != nil {
		return 0, fmt.Errorf("bulk indexer: %w", err)
	}

	for _, tx := range txs {
		data, err := json.Marshal(NewDocument(tx))
		if err != nil {
			return 0, fmt.Errorf("encode document: %w", err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: tx.ID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					i.logger.ErrorContext(ctx, "Failed to index transaction", log.FieldTxID, item.DocumentID, log.FieldError, err)
					return
				}
				i.logger.ErrorContext(ctx, "Failed to index transaction",
					log.FieldTxID, item.DocumentID,
					"reason", res.Error.Reason,
					"type", res.Error.Type)
			},
		})
		if err != nil {
			return 0, fmt.Errorf("queue %s: %w", tx.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return int(stats.NumFlushed), fmt.Errorf("failed indexing %d docs", stats.NumFailed)
	}
	i.logger.InfoContext(ctx, "Reindexed transactions", "count", stats.NumFlushed, "index", i.name)
	return int(stats.NumFlushed), nil
}

func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%s: %s", op, res.Status())
	}
	return nil
}
