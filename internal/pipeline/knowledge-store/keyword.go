// internal/pipeline/knowledge-store/keyword.go
package knowledgestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
)

var ErrKeywordSearchFailed = errors.New("KEYWORD_SEARCH_FAILED")

// MetadataKeyword marks results served by the keyword mirror instead of the vector index.
const MetadataKeyword = "keyword"

// KeywordIndex mirrors ingested chunks for lexical search.
type KeywordIndex interface {
	IndexChunks(ctx context.Context, generation string, chunks []DocumentChunk) error
	Search(ctx context.Context, query string, topK int, source string) ([]SearchResult, error)
}

type ElasticKeywordIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticKeywordIndex(client *elasticsearch.Client, index string) *ElasticKeywordIndex {
	return &ElasticKeywordIndex{client: client, index: index}
}

type keywordDoc struct {
	Generation string                 `json:"generation"`
	Text       string                 `json:"text"`
	Source     string                 `json:"source"`
	Page       int                    `json:"page"`
	ChunkIndex int                    `json:"chunkIndex"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// IndexChunks bulk-indexes the generation and then removes documents left over
// from earlier generations.
func (e *ElasticKeywordIndex) IndexChunks(ctx context.Context, generation string, chunks []DocumentChunk) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, c := range chunks {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_id": generation + "-" + strconv.Itoa(c.ChunkIndex)},
		}
		if err := enc.Encode(action); err != nil {
			return err
		}
		if err := enc.Encode(keywordDoc{
			Generation: generation,
			Text:       c.Text,
			Source:     c.Source,
			Page:       c.Page,
			ChunkIndex: c.ChunkIndex,
			Metadata:   c.Metadata,
		}); err != nil {
			return err
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(body.Bytes()),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithIndex(e.index),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: bulk: %v", ErrKeywordSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: bulk: %s", ErrKeywordSearchFailed, res.String())
	}

	var bulk struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return fmt.Errorf("%w: decode bulk response: %v", ErrKeywordSearchFailed, err)
	}
	if bulk.Errors {
		return fmt.Errorf("%w: bulk reported item errors", ErrKeywordSearchFailed)
	}

	prune := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"generation": generation}},
				},
			},
		},
	}
	raw, _ := json.Marshal(prune)
	del, err := e.client.DeleteByQuery(
		[]string{e.index},
		bytes.NewReader(raw),
		e.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: prune: %v", ErrKeywordSearchFailed, err)
	}
	defer del.Body.Close()
	if del.IsError() {
		return fmt.Errorf("%w: prune: %s", ErrKeywordSearchFailed, del.String())
	}
	return nil
}

// Search runs a match query. Scores are divided by the top hit's score so they
// stay in [0,1] like the vector path.
func (e *ElasticKeywordIndex) Search(ctx context.Context, query string, topK int, source string) ([]SearchResult, error) {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{"match": map[string]interface{}{"text": query}},
		},
	}
	if source != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"source": source}},
		}
	}
	raw, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	})
	if err != nil {
		return nil, err
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(raw)),
		e.client.Search.WithSize(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeywordSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrKeywordSearchFailed, res.String())
	}

	var parsed struct {
		Hits struct {
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				Score  float64    `json:"_score"`
				Source keywordDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrKeywordSearchFailed, err)
	}

	results := make([]SearchResult, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if source != "" && hit.Source.Source != source {
			continue
		}
		score := 0.0
		if parsed.Hits.MaxScore > 0 {
			score = hit.Score / parsed.Hits.MaxScore
		}
		meta := make(map[string]interface{}, len(hit.Source.Metadata)+1)
		for k, v := range hit.Source.Metadata {
			meta[k] = v
		}
		meta[MetadataKeyword] = true
		results = append(results, SearchResult{
			Text:     hit.Source.Text,
			Source:   hit.Source.Source,
			Page:     hit.Source.Page,
			Score:    score,
			Metadata: meta,
		})
		if len(results) == topK {
			break
		}
	}
	return results, nil
}
